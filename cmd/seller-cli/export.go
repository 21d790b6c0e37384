package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"sellerchain/config"
	"sellerchain/indexer"
	"sellerchain/integrations/exports"
)

// indexFlags select the SQL index a reporting command reads. Explicit
// driver and DSN flags win over the node configuration.
type indexFlags struct {
	configFile string
	driver     string
	dsn        string
}

func bindIndexFlags(fs *flag.FlagSet) *indexFlags {
	f := &indexFlags{}
	fs.StringVar(&f.configFile, "config", "./config.toml", "Node configuration naming the index")
	fs.StringVar(&f.driver, "driver", "", "Index driver (sqlite or postgres)")
	fs.StringVar(&f.dsn, "dsn", "", "Index DSN")
	return f
}

func (f *indexFlags) open() (*indexer.Indexer, error) {
	driver, dsn := strings.TrimSpace(f.driver), strings.TrimSpace(f.dsn)
	if dsn == "" {
		cfg, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if !cfg.Indexer.Enabled {
			return nil, fmt.Errorf("the indexer is disabled in %s", f.configFile)
		}
		driver, dsn = cfg.Indexer.Driver, cfg.Indexer.DSN
	}
	return indexer.Open(driver, dsn, nil)
}

func normaliseAddressFlag(name, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	addr, err := parseAddressArg(name, raw)
	if err != nil {
		return "", err
	}
	return hexOf(addr.Bytes()), nil
}

// collectPurchases pages through the index by height. Every transaction is
// its own block, so a height holds at most one purchase.
func collectPurchases(ctx context.Context, ix *indexer.Indexer, filter indexer.Filter) ([]indexer.Purchase, error) {
	var all []indexer.Purchase
	for {
		page, err := ix.Purchases(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || len(page) < filter.Limit {
			return all, nil
		}
		last := page[len(page)-1].Height
		if filter.ToHeight != 0 && last >= filter.ToHeight {
			return all, nil
		}
		filter.FromHeight = last + 1
	}
}

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	idx := bindIndexFlags(fs)
	sellerFlag := fs.String("seller", "", "Only purchases from this seller")
	accountFlag := fs.String("account", "", "Only purchases where this account bought or referred")
	from := fs.Uint64("from", 0, "First height to include")
	to := fs.Uint64("to", 0, "Last height to include (0 for no bound)")
	format := fs.String("format", "csv", "Output format: csv, jsonl or parquet")
	out := fs.String("out", "", "Output file (stdout when empty; required for parquet)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Println("Usage: seller-cli export [--config <path> | --driver <d> --dsn <dsn>] [--seller <addr>] [--account <addr>] [--from <h>] [--to <h>] [--format csv|jsonl|parquet] [--out <file>]")
		return 1
	}
	sellerAddr, err := normaliseAddressFlag("seller", *sellerFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	accountAddr, err := normaliseAddressFlag("account", *accountFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	kind := strings.ToLower(strings.TrimSpace(*format))
	if kind == "parquet" && strings.TrimSpace(*out) == "" {
		fmt.Fprintln(os.Stderr, "Error: --out is required for parquet exports")
		return 1
	}

	ix, err := idx.open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ix.Close()

	purchases, err := collectPurchases(context.Background(), ix, indexer.Filter{
		Seller:     sellerAddr,
		Account:    accountAddr,
		FromHeight: *from,
		ToHeight:   *to,
		Limit:      500,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var (
		data     []byte
		checksum string
	)
	switch kind {
	case "csv":
		data, checksum, err = exports.PurchasesCSV(purchases)
	case "jsonl":
		data, checksum, err = exports.PurchasesJSONL(purchases)
	case "parquet":
		err = exports.PurchasesParquetFile(*out, purchases)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if kind == "parquet" {
		fmt.Fprintf(os.Stderr, "Exported %d purchases to %s\n", len(purchases), *out)
		return 0
	}
	if strings.TrimSpace(*out) == "" {
		_, _ = os.Stdout.Write(data)
	} else if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Exported %d purchases (sha256 %s)\n", len(purchases), checksum)
	return 0
}

func runTotals(args []string) int {
	fs := flag.NewFlagSet("totals", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	idx := bindIndexFlags(fs)
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Println("Usage: seller-cli totals [--config <path> | --driver <d> --dsn <dsn>] <seller>")
		return 1
	}
	sellerAddr, err := normaliseAddressFlag("seller", fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ix, err := idx.open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ix.Close()
	totals, err := ix.SellerTotals(context.Background(), sellerAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return printJSON(map[string]interface{}{
		"seller":       sellerAddr,
		"purchases":    totals.Purchases,
		"referralHits": totals.ReferralHits,
		"payments":     totals.Payments.String(),
		"tokens":       totals.Tokens.String(),
		"bonus":        totals.Bonus.String(),
		"remainder":    totals.Remainder.String(),
		"withdrawn":    totals.Withdrawn.String(),
	})
}
