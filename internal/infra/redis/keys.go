package redis

import "fmt"

func SessionKey(phone string) string { return "ussd_session:" + phone }

// ResultsKey holds the cached results of a poll; the notifier deletes it on every change.
func ResultsKey(pollID int64) string { return fmt.Sprintf("poll:%d:results", pollID) }

func VotesChannel(pollID int64) string { return fmt.Sprintf("poll:%d:votes", pollID) }
