package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"
)

func runAPIKeyCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: hhgen apikey <create|list|revoke>")
		return 2
	}

	switch args[0] {
	case "create":
		return runAPIKeyCreate(args[1:], stdout, stderr)
	case "list":
		return runAPIKeyList(stdout, stderr)
	case "revoke":
		return runAPIKeyRevoke(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown apikey command: %s\n", args[0])
		return 2
	}
}

func runAPIKeyCreate(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("apikey create", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var name string
	cmd.StringVar(&name, "name", "", "Label for the key (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(stderr, "Error: -name is required")
		return 2
	}

	b, _, _, ok := openBackend(context.Background(), stderr)
	if !ok {
		return 1
	}
	defer b.Close()

	k, plaintext, err := b.APIKeys.Create(name)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "Created key %d (%s). Store it now; it is not shown again.\n", k.ID, k.Name)
	fmt.Fprintln(stdout, plaintext)
	return 0
}

func runAPIKeyList(stdout, stderr io.Writer) int {
	b, _, _, ok := openBackend(context.Background(), stderr)
	if !ok {
		return 1
	}
	defer b.Close()

	keys, err := b.APIKeys.List()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tCREATED\tLAST USED\tSTATUS")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format(time.RFC3339)
		}
		status := "active"
		if !k.Active() {
			status = "revoked"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Name, k.Prefix, k.CreatedAt.Format(time.RFC3339), lastUsed, status)
	}
	tw.Flush()
	return 0
}

func runAPIKeyRevoke(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: hhgen apikey revoke ID")
		return 2
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid key id %q\n", args[0])
		return 2
	}

	b, _, _, ok := openBackend(context.Background(), stderr)
	if !ok {
		return 1
	}
	defer b.Close()

	k, err := b.APIKeys.GetByID(id)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if k == nil {
		fmt.Fprintf(stderr, "Error: no key with id %d\n", id)
		return 1
	}
	if err := b.APIKeys.Revoke(id); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Revoked key %d (%s)\n", k.ID, k.Name)
	return 0
}
