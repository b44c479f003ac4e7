package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"visitorlog/internal/config"
	"visitorlog/internal/dashboard"
	"visitorlog/internal/store"
	"visitorlog/internal/visitor"
)

// export writes the visitor log, filtered like the dashboard, to a CSV or
// XLSX file without going through the web service.
func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg)
	logger.SetOutput(os.Stderr)

	var (
		f      dashboard.Filter
		format string
		out    string
	)
	flag.StringVar(&f.Search, "q", "", "search by name or company")
	flag.StringVar(&f.Status, "status", dashboard.StatusAll, "all, checked-in or checked-out")
	flag.StringVar(&f.DateRange, "range", dashboard.RangeAll, "all, today, 7days or 30days")
	flag.StringVar(&format, "format", "csv", "csv or xlsx")
	flag.StringVar(&out, "out", "", "output file, - for stdout (default visitor_log_<date>.<format>)")
	flag.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "memory, redis, postgres or sqlite")
	flag.Parse()

	if err := run(cfg, logger, f, format, out); err != nil {
		logger.WithError(err).Fatal("export failed")
	}
}

func run(cfg config.App, logger *logrus.Logger, f dashboard.Filter, format, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	write := dashboard.WriteCSV
	switch format {
	case "csv":
	case "xlsx":
		write = dashboard.WriteXLSX
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	backends, err := store.Open(ctx, store.OpenOptions{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		RedisAddr:   cfg.RedisAddr,
	})
	if err != nil {
		return err
	}
	defer backends.Close()

	records, err := visitor.NewRepository(backends.Slots, cfg.VisitorsKey, logger).LoadAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	filtered := dashboard.Apply(dashboard.SortByDateDesc(records, loc), f, now)

	var w io.Writer = os.Stdout
	if out != "-" {
		if out == "" {
			out = dashboard.ExportFilename(now, format)
		}
		file, err := os.Create(out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	if err := write(w, filtered); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"rows": len(filtered), "out": out}).Info("visitor log exported")
	return nil
}
