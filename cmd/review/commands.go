package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/search"
)

const usage = `usage:
  review search -q <text> [-n 10]
  review set-status -account <id> -status verified|rejected|pending`

var errUsage = errors.New(usage)

type profileSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.ProfileDoc, error)
}

type statusSetter interface {
	SetVerificationStatus(ctx context.Context, accountID string, status entity.VerificationStatus) (*entity.BankAccount, error)
}

func runSearch(ctx context.Context, s profileSearcher, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	q := fs.String("q", "", "text matched against name, identification number, email and city")
	n := fs.Int("n", 10, "maximum number of profiles")
	if err := fs.Parse(args); err != nil || *q == "" {
		return errUsage
	}

	docs, err := s.Search(ctx, *q, *n)
	if err != nil {
		return fmt.Errorf("search profiles: %w", err)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tTYPE\tNAME\tID NUMBER\tEMAIL\tCITY")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", d.UserID, d.EntityType, d.DisplayName, d.IdentificationNumber, d.ContactEmail, d.City)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d profile(s)\n", len(docs))
	return nil
}

func runSetStatus(ctx context.Context, svc statusSetter, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("set-status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	account := fs.String("account", "", "bank account id")
	status := fs.String("status", "", "verified, rejected or pending")
	if err := fs.Parse(args); err != nil || *account == "" || *status == "" {
		return errUsage
	}

	a, err := svc.SetVerificationStatus(ctx, *account, entity.VerificationStatus(*status))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "account %s (%s ****%s) is now %s, preferred=%t\n", a.ID, a.BankName, a.AccountNumberLast4(), a.Status, a.IsPreferred)
	return nil
}
