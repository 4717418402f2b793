// Command kbtool checks and explores a support-chat knowledge base.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wolfman30/sitegen-supportchat/cmd/mainconfig"
	appconfig "github.com/wolfman30/sitegen-supportchat/internal/config"
	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/matcher"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var source string

	root := &cobra.Command{
		Use:          "kbtool",
		Short:        "Validate and explore the support-chat knowledge base",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&source, "kb", "", "knowledge base source: file path, file:<path>, s3://bucket/key (default: embedded)")

	load := func(ctx context.Context) (*knowledge.KnowledgeBase, error) {
		var objects knowledge.ObjectGetter
		if strings.HasPrefix(source, "s3://") {
			cfg := appconfig.Load()
			awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("load aws config: %w", err)
			}
			objects = mainconfig.NewS3Client(awsCfg, cfg)
		}
		return knowledge.LoadSource(ctx, source, objects)
	}

	root.AddCommand(newValidateCmd(load), newTopicsCmd(load), newMatchCmd(load), newLintCmd(load))
	return root
}

type loader func(ctx context.Context) (*knowledge.KnowledgeBase, error)

func newValidateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the knowledge base and report every integrity problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := load(cmd.Context())
			if err != nil {
				var verr *knowledge.ValidationError
				if errors.As(err, &verr) {
					for _, issue := range verr.Issues {
						fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", issue)
					}
					return fmt.Errorf("%d problem(s) found", len(verr.Issues))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: version %s, %d topics, languages %v\n", kb.Version(), len(kb.Topics()), kb.Languages())
			return nil
		},
	}
}

func newTopicsCmd(load loader) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List topics with their title and keyword groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := load(cmd.Context())
			if err != nil {
				return err
			}
			l := kb.ResolveLanguage(lang)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tTITLE\tKEYWORDS")
			for _, t := range kb.Topics() {
				groups := make([]string, 0, len(t.KeywordGroups(l)))
				for _, g := range t.KeywordGroups(l) {
					groups = append(groups, "["+strings.Join(g, " ")+"]")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Kind, t.Title(l), strings.Join(groups, " "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language (default: knowledge base default)")
	return cmd
}

func newMatchCmd(load loader) *cobra.Command {
	var (
		lang    string
		last    string
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "match <text>",
		Short: "Show which topic an input resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := load(cmd.Context())
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			exp := matcher.New(kb).Explain(text, last, kb.ResolveLanguage(lang))
			if explain {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(exp)
			}
			if exp.Selected == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no match")
				return nil
			}
			for _, s := range exp.Scores {
				if s.TopicID == exp.Selected {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (score %d, bonus %d)\n", s.TopicID, s.Total, s.Bonus)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language (default: knowledge base default)")
	cmd.Flags().StringVar(&last, "last", "", "topic ID of the previous answer")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the full per-topic score breakdown as JSON")
	return cmd
}

func newLintCmd(load loader) *cobra.Command {
	var words []string
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report keyword groups that function words alone would fully match",
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := load(cmd.Context())
			if err != nil {
				return err
			}
			m := matcher.New(kb)
			found := 0
			for _, lang := range kb.Languages() {
				input := matcher.FunctionWords[lang]
				if len(words) > 0 {
					input = strings.Join(words, " ")
				}
				if input == "" {
					continue
				}
				for _, s := range m.Collisions(input, lang) {
					found++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: topic %s group [%s] is covered by function words\n", lang, s.TopicID, strings.Join(s.BestGroup, " "))
				}
			}
			if found > 0 {
				return fmt.Errorf("%d keyword group(s) match on function words", found)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&words, "words", nil, "override the function word list (applies to every language)")
	return cmd
}
