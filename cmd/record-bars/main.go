package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/whale-tracker/cmd/common"
	"github.com/ducminhle1904/whale-tracker/internal/exchange/bybit"
	"github.com/ducminhle1904/whale-tracker/internal/safety"
	"github.com/ducminhle1904/whale-tracker/pkg/data"
)

const pageLimit = 1000

// record-bars downloads Bybit klines into {outdir}/{SYMBOL}.csv in the layout
// the replay feed reads. The volume column holds quote-currency turnover,
// the unit the live feed reports.
func main() {
	var (
		symbols  = flag.String("symbols", "BTCUSDT,ETHUSDT", "Comma-separated list of symbols")
		category = flag.String("category", "spot", "Market category (spot, linear, inverse)")
		interval = flag.String("interval", "60", "Kline interval (1, 5, 15, 60, 240, D, W)")
		bars     = flag.Int("bars", 2000, "Number of most recent bars per symbol")
		outdir   = flag.String("outdir", "data/replay", "Directory to write CSV files")
		end      = flag.String("end", "", "End date (YYYY-MM-DD), defaults to now")
	)
	flags := common.RegisterCommonFlags()
	flag.Parse()

	if *flags.Version {
		common.PrintVersion("record-bars")
		return
	}
	if err := common.NewFlagValidator().
		ValidateOneOf("category", *category, "spot", "linear", "inverse").
		ValidateOneOf("interval", *interval, "1", "5", "15", "60", "240", "D", "W").
		Error(); err != nil {
		log.Fatal(err)
	}

	endTime := time.Now().UTC()
	if *end != "" {
		t, err := time.Parse("2006-01-02", *end)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
		endTime = t.Add(24*time.Hour - time.Millisecond)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := &recorder{
		client:   bybit.NewClient(bybit.Config{}),
		category: *category,
		interval: bybit.KlineInterval(*interval),
		limiter:  safety.NewRateLimiter("bybit-download", 10, 5),
	}

	for _, sym := range strings.Split(*symbols, ",") {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		klines, err := rec.download(ctx, sym, *bars, endTime)
		if err != nil {
			log.Fatalf("%s: %v", sym, err)
		}
		path := filepath.Join(*outdir, sym+".csv")
		if err := writeCSV(path, klines); err != nil {
			log.Fatalf("%s: %v", sym, err)
		}
		fmt.Printf("✅ %s: %d bars -> %s\n", sym, len(klines), path)
	}
}

type recorder struct {
	client   *bybit.Client
	category string
	interval bybit.KlineInterval
	limiter  *safety.RateLimiter
}

// download pages backwards from end until want bars are collected, oldest first
func (r *recorder) download(ctx context.Context, symbol string, want int, end time.Time) ([]bybit.Kline, error) {
	seen := make(map[int64]bybit.Kline, want)
	cursor := end

	for len(seen) < want {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		limit := want - len(seen)
		if limit > pageLimit {
			limit = pageLimit
		}
		pageEnd := cursor

		var page []bybit.Kline
		err := bybit.Retry(ctx, bybit.DefaultRetryConfig(), func() error {
			var err error
			page, err = r.client.GetKlines(ctx, bybit.KlineParams{
				Category: r.category,
				Symbol:   symbol,
				Interval: r.interval,
				End:      &pageEnd,
				Limit:    limit,
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		added := 0
		for _, k := range page {
			ms := k.StartTime.UnixMilli()
			if _, ok := seen[ms]; !ok {
				seen[ms] = k
				added++
			}
		}
		if added == 0 {
			break
		}
		cursor = page[0].StartTime.Add(-time.Millisecond)
	}

	out := make([]bybit.Kline, 0, len(seen))
	for _, k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > want {
		out = out[len(out)-want:]
	}
	return out, nil
}

func writeCSV(path string, klines []bybit.Kline) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	format := data.DefaultCSVFormat.DateFormat
	for _, k := range klines {
		if err := w.Write([]string{
			k.StartTime.UTC().Format(format),
			strconv.FormatFloat(k.OpenPrice, 'f', -1, 64),
			strconv.FormatFloat(k.HighPrice, 'f', -1, 64),
			strconv.FormatFloat(k.LowPrice, 'f', -1, 64),
			strconv.FormatFloat(k.ClosePrice, 'f', -1, 64),
			strconv.FormatFloat(k.Turnover, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
