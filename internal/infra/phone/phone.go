package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"votelab/internal/domain"
)

// Normalizer turns whatever the USSD aggregator sends as the caller id into E.164.
type Normalizer struct {
	region string
}

func NewNormalizer(defaultRegion string) *Normalizer {
	if defaultRegion == "" {
		defaultRegion = "GH"
	}
	return &Normalizer{region: strings.ToUpper(defaultRegion)}
}

// E164 parses raw against the default region; numbers that are not valid for any region are rejected.
func (n *Normalizer) E164(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrInvalidArgument
	}
	// some aggregators drop the leading plus on international numbers
	if !strings.HasPrefix(raw, "+") && !strings.HasPrefix(raw, "0") && len(raw) > 10 {
		raw = "+" + raw
	}
	num, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: not a valid number", domain.ErrInvalidArgument)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
