package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"votelab/internal/config"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
	pg "votelab/internal/infra/db/postgres"
	"votelab/internal/infra/db/postgres/migrations"
	"votelab/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	quiet := zerolog.New(io.Discard)
	if err := pg.ApplyMigrations(ctx, pool, migrations.Files, &quiet); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	catalog := pg.NewCatalogRepo(pool)
	polls := pg.NewPollRepo(pool)
	tm := pg.NewTxManager(pool)

	// If polls are already open, do nothing
	active, err := catalog.ActivePolls(ctx, time.Now())
	if err != nil {
		log.Fatalf("list polls: %v", err)
	}
	if len(active) > 0 {
		fmt.Printf("%d active polls already present. No changes.\n", len(active))
		for _, p := range active {
			fmt.Printf("  - #%d %s (%s)\n", p.ID, p.Title, p.Type)
		}
		return
	}

	now := time.Now()
	seed := []struct {
		Title       string
		Type        model.PollType
		Fee         string
		Setup       string
		Voters      int
		Contestants map[string][]string
	}{
		{
			Title: "Campus Music Awards", Type: model.PollTypeVotersPay, Fee: "1.00",
			Contestants: map[string][]string{
				"Artiste of the Year": {"Kwame Eugene", "Gyakie", "King Promise"},
				"Best Newcomer":       {"Black Sherif", "Lasmid"},
			},
		},
		{
			Title: "SRC Elections", Type: model.PollTypeCreatorPay, Setup: "50.00", Voters: 20,
			Contestants: map[string][]string{
				"President": {"Ama Mensah", "Kofi Boateng"},
				"Secretary": {"Efua Asante", "Yaw Owusu"},
			},
		},
	}

	var creatorPollID int64
	for _, s := range seed {
		p, err := model.NewPoll(s.Title, s.Type, decimalOrZero(s.Fee), decimalOrZero(s.Setup), s.Voters, now.Add(-time.Hour), now.Add(30*24*time.Hour))
		if err != nil {
			log.Fatalf("poll %q: %v", s.Title, err)
		}
		// seeded creator-pay polls skip the activation payment
		p.Active = true

		err = tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := polls.Save(ctx, tx, p); err != nil {
				return err
			}
			for category, names := range s.Contestants {
				for _, name := range names {
					c := &model.Contestant{PollID: p.ID, Category: category, Name: name}
					if err := polls.SaveContestant(ctx, tx, c); err != nil {
						return err
					}
					fmt.Printf("    %s / %s -> contestant #%d (%s)\n", s.Title, category, c.ID, c.NomineeCode)
				}
			}
			return nil
		})
		if err != nil {
			log.Fatalf("seed %q: %v", s.Title, err)
		}
		fmt.Printf("Seeded poll #%d %s (%s)\n", p.ID, p.Title, p.Type)
		if p.IsCreatorPay() {
			creatorPollID = p.ID
		}
	}

	if creatorPollID != 0 {
		admin := usecase.NewAdminUseCase(tm, polls, pg.NewAdmissionCodeRepo(pool), pg.NewTransactionRepo(pool), nil, usecase.DefaultRetryPolicy(), &quiet)
		codes, err := admin.GenerateCodes(ctx, creatorPollID, 10)
		if err != nil {
			log.Fatalf("codes: %v", err)
		}
		fmt.Printf("Voter codes for poll #%d:\n", creatorPollID)
		for _, c := range codes {
			fmt.Printf("  %s\n", c)
		}
	}
}

func decimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}
