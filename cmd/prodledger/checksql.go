// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/validation"
)

// checkResult is the --json output of check-sql.
type checkResult struct {
	Safe          bool     `json:"safe"`
	SQL           string   `json:"sql,omitempty"`
	LimitAppended bool     `json:"limit_appended,omitempty"`
	Tables        []string `json:"tables,omitempty"`
	Stage         string   `json:"stage,omitempty"`
	Token         string   `json:"token,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

var errRejected = errors.New("statement rejected")

func newCheckSQLCmd() *cobra.Command {
	var (
		table  string
		rowCap int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "check-sql [statement|-]",
		Short: "Validate an ad-hoc statement without executing it",
		Long: "Runs the five-stage safety validator on a statement and prints the text that would\n" +
			"be executed. With no argument or \"-\" the statement is read from stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readStatement(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			res := checkStatement(validation.NewSQLGuard(table, rowCap), raw)
			if err := writeCheckResult(cmd.OutOrStdout(), res, asJSON); err != nil {
				return err
			}
			if !res.Safe {
				return errRejected
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "production_records", "sanctioned table name")
	cmd.Flags().IntVar(&rowCap, "row-cap", validation.DefaultRowCap, "LIMIT appended when the statement has none")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func readStatement(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read statement: %w", err)
	}
	return string(b), nil
}

func checkStatement(guard *validation.SQLGuard, raw string) checkResult {
	safe, err := guard.Validate(raw)
	if err == nil {
		return checkResult{Safe: true, SQL: safe.Text, LimitAppended: safe.LimitAppended, Tables: safe.Tables}
	}

	res := checkResult{Reason: err.Error()}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		res.Stage = appErr.Stage
		res.Token = appErr.Token
		res.Reason = appErr.Reason
	}
	return res
}

func writeCheckResult(w io.Writer, res checkResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	var b strings.Builder
	if res.Safe {
		b.WriteString(res.SQL)
		b.WriteByte('\n')
	} else {
		fmt.Fprintf(&b, "rejected: %s\n", res.Reason)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
