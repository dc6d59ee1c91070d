// campaignctl клиент командной строки для API администрирования кампаний.
//
// Usage:
//
//	campaignctl [-addr host:port] publish -name N -type T -burn-rules JSON [-wallet-action JSON] [-force-status S] file.csv
//	campaignctl [-addr host:port] results [-csv] <campaignId>
//	campaignctl [-addr host:port] campaigns
//	campaignctl [-addr host:port] wallets [<campaignId>]
//	campaignctl [-addr host:port] programs
//	campaignctl [-addr host:port] sample <formatId>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iurnickita/campaignadmin/internal/apiclient"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Getenv); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "campaignctl: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: campaignctl [-addr host:port] <command> [flags] [args]

commands:
  publish    publish a campaign from a CSV file
  results    show results of a one-time campaign
  campaigns  list campaigns
  wallets    list wallets, optionally of one campaign
  programs   list programs
  sample     download a sample file for a file format
`)
}

func run(ctx context.Context, args []string, stdout io.Writer, getenv func(string) string) error {
	addr := getenv("CAMPAIGNADMIN_ADDR")
	if addr == "" {
		addr = "localhost:8080"
	}

	fs := flag.NewFlagSet("campaignctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&addr, "addr", addr, "server address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	client := apiclient.New(addr)
	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "publish":
		return publish(ctx, client, cmdArgs, stdout)
	case "results":
		return results(ctx, client, cmdArgs, stdout)
	case "campaigns":
		campaigns, err := client.Campaigns(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, campaigns)
	case "wallets":
		return wallets(ctx, client, cmdArgs, stdout)
	case "programs":
		programs, err := client.Programs(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, programs)
	case "sample":
		if len(cmdArgs) != 1 {
			return errUsage
		}
		data, err := client.SampleFile(ctx, cmdArgs[0])
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func publish(ctx context.Context, client *apiclient.Client, args []string, stdout io.Writer) error {
	var p apiclient.PublishParams

	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&p.Name, "name", "", "campaign name")
	fs.StringVar(&p.Type, "type", "one-time", "campaign type: one-time or trigger-based")
	fs.StringVar(&p.BurnRules, "burn-rules", "", `burn rules JSON, e.g. {"expiryDays":30,"expiryPeriod":"days"}`)
	fs.StringVar(&p.WalletAction, "wallet-action", "", `wallet action JSON, e.g. {"creditType":"flat","creditAmount":100}`)
	fs.StringVar(&p.ForceStatus, "force-status", "", "campaign status instead of the default for the type")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	p.FileName = filepath.Base(path)
	p.CSV = f

	campaign, err := client.Publish(ctx, p)
	if err != nil {
		return err
	}
	return printJSON(stdout, campaign)
}

func results(ctx context.Context, client *apiclient.Client, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asCSV := fs.Bool("csv", false, "print results as CSV")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	if *asCSV {
		data, err := client.ResultsCSV(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	res, err := client.Results(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return printJSON(stdout, res)
}

func wallets(ctx context.Context, client *apiclient.Client, args []string, stdout io.Writer) error {
	switch len(args) {
	case 0:
		res, err := client.Wallets(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, res)
	case 1:
		res, err := client.CampaignWallets(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(stdout, res)
	default:
		return errUsage
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
