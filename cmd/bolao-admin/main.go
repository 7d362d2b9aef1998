package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/radieske/bolao-platform/internal/ranking-service/cache"
	"github.com/radieske/bolao-platform/internal/ranking-service/dto"
	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/producer"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/db"
)

func main() {
	cfg := config.Load()

	cliApp := &cli.App{
		Name:  "bolao-admin",
		Usage: "operações de manutenção do ranking",
		Commands: []*cli.Command{
			migrateCommand(cfg),
			recalculateCommand(cfg),
			standingsCommand(cfg),
			tiebreakCommand(cfg),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var scopeFlag = &cli.StringFlag{
	Name:  "scope",
	Usage: `escopo no formato "GLOBAL" ou "GROUP:<id>"`,
}

func migrateCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "aplica o schema no Postgres",
		Action: func(c *cli.Context) error {
			env, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer env.close()
			if err := db.Migrate(c.Context, env.db); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "schema applied")
			return nil
		},
	}
}

func recalculateCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "recalculate",
		Usage: "recalcula um escopo, ou GLOBAL + todos os grupos ativos quando --scope é omitido",
		Flags: []cli.Flag{scopeFlag},
		Action: func(c *cli.Context) error {
			env, err := connect(cfg, true)
			if err != nil {
				return err
			}
			defer env.close()

			recalc := standings.NewRecalculator(env.log, env.pg, cache.NewStandingsCache(env.redis),
				producer.NewKafkaPublisher(env.writer, cfg.TopicStandingsUpdated), nil)

			if !c.IsSet("scope") {
				sum, err := recalc.RecalculateAll(c.Context)
				if err := printJSON(c.App.Writer, sum); err != nil {
					return err
				}
				if err != nil {
					return err
				}
				return sum.Err()
			}

			scope, err := model.ParseScope(c.String("scope"))
			if err != nil {
				return err
			}
			snap, err := recalc.Recalculate(c.Context, scope)
			if err != nil {
				return err
			}
			if snap == nil {
				fmt.Fprintf(c.App.Writer, "%s: no finished matches, snapshot untouched\n", scope)
				return nil
			}
			return writeTable(c.App.Writer, snap.Standings)
		},
	}
}

func standingsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "standings",
		Usage: "mostra o último snapshot gravado de um escopo",
		Flags: []cli.Flag{scopeFlag},
		Action: func(c *cli.Context) error {
			scope, err := model.ParseScope(scopeOrGlobal(c))
			if err != nil {
				return err
			}
			env, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer env.close()

			snap, err := env.pg.GetSnapshot(c.Context, scope)
			if err != nil {
				return err
			}
			if snap == nil {
				return printJSON(c.App.Writer, dto.EmptyStandings(scope))
			}
			count, err := env.pg.CountFinishedMatches(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, dto.FromSnapshot(*snap, count))
		},
	}
}

func tiebreakCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "tiebreak",
		Usage: "calcula a classificação com desempate por erro de saldo (não grava)",
		Flags: []cli.Flag{scopeFlag},
		Action: func(c *cli.Context) error {
			scope, err := model.ParseScope(scopeOrGlobal(c))
			if err != nil {
				return err
			}
			env, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer env.close()

			rows, err := standings.Tiebreak(c.Context, env.pg, scope)
			if err != nil {
				return err
			}
			return writeTable(c.App.Writer, rows)
		},
	}
}

func scopeOrGlobal(c *cli.Context) string {
	if s := c.String("scope"); s != "" {
		return s
	}
	return model.GlobalScope().String()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, rows []model.StandingRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tNAME\tPOINTS\tEXACT\tRESULT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%d\n", r.Rank, r.UserID, r.Name, r.TotalPoints, r.ExactMatches, r.CorrectResults)
	}
	return tw.Flush()
}
