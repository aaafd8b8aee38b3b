package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehr/multistate/internal/config"
	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/domain/polish"
	"github.com/ehr/multistate/internal/platform/frame"
)

const (
	formatCSV      = "csv"
	formatJSON     = "json"
	formatJSONRows = "json-rows"
)

// roleFlags registers one flag per augmentation role on cmd.
func roleFlags(cmd *cobra.Command, r *augment.Roles) {
	cmd.Flags().StringVar(&r.Subject, "subject", "", "Subject identifier column")
	cmd.Flags().StringVar(&r.Episode, "episode", "", "Episode index column")
	cmd.Flags().StringVar(&r.Terminal, "terminal", "", "Terminal outcome column")
	cmd.Flags().StringVar(&r.Start, "start", "", "Interval start column")
	cmd.Flags().StringVar(&r.End, "end", "", "Interval end column")
	cmd.Flags().StringVar(&r.Censoring, "censor", "", "Censoring time column")
	cmd.Flags().StringVar(&r.Secondary, "secondary", "", "Secondary status column")
}

// resolveRoles merges the role flags over the optional YAML roles file.
func resolveRoles(flags augment.Roles, path string) (augment.Roles, error) {
	if path == "" {
		return flags, nil
	}
	fromFile, err := augment.LoadRoles(path)
	if err != nil {
		return augment.Roles{}, err
	}
	return flags.Merge(fromFile), nil
}

// readFrame decodes a CSV file; "-" reads stdin.
func readFrame(cmd *cobra.Command, path, schema string) (*frame.Frame, error) {
	s, err := frame.ParseSchema(schema)
	if err != nil {
		return nil, err
	}
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer fh.Close()
		r = fh
	}
	return frame.ReadCSV(r, frame.ReadOptions{Schema: s})
}

// writeFrame renders f to path, or to stdout when path is empty.
func writeFrame(cmd *cobra.Command, f *frame.Frame, path, format string) error {
	w := cmd.OutOrStdout()
	if path != "" {
		fh, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer fh.Close()
		w = fh
	}

	switch format {
	case formatCSV:
		return frame.WriteCSV(w, f)
	case formatJSON, formatJSONRows:
		jf := frame.FormatColumnar
		if format == formatJSONRows {
			jf = frame.FormatRows
		}
		body, err := frame.Encode(f, jf)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(body))
		return err
	}
	return fmt.Errorf("unknown format %q, want csv, json or json-rows", format)
}

func augmentCmd() *cobra.Command {
	var (
		in, out, format, rolesPath, labels, schema string
		validateMissing, verbose, polishOut        bool
		workers                                    int
		roles                                      augment.Roles
	)

	cmd := &cobra.Command{
		Use:   "augment",
		Short: "Expand an episode table into multi-state transition rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			r, err := resolveRoles(roles, rolesPath)
			if err != nil {
				return err
			}
			f, err := readFrame(cmd, in, schema)
			if err != nil {
				return err
			}

			opts := cfg.AugmentOptions()
			opts.Logger = &logger
			opts.ValidateMissing = validateMissing
			opts.Verbose = opts.Verbose || verbose
			if labels != "" {
				opts.Vocabulary = augment.ParseVocabulary(labels)
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}

			res, err := augment.Augment(cmd.Context(), f, r, opts)
			if err != nil {
				return err
			}
			result := res.Frame
			if polishOut {
				p, err := polish.Polish(result, polish.Options{SubjectColumn: r.Subject, Mode: polish.ModeCollapse})
				if err != nil {
					return err
				}
				logger.Info().
					Int("conflicts", p.Conflicts).
					Int("redundant", p.Redundant).
					Int("dropped", p.Dropped).
					Msg("collapsed same-time transitions")
				result = p.Frame
			}

			logger.Info().
				Str("family", res.Family.String()).
				Int("subjects", res.Subjects).
				Int("rows", result.Len()).
				Int("warnings", len(res.Warnings)).
				Msg("augmentation complete")
			return writeFrame(cmd, result, out, format)
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Input CSV file, - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", formatCSV, "Output format: csv, json or json-rows")
	cmd.Flags().StringVar(&rolesPath, "roles", "", "YAML file mapping roles to columns")
	cmd.Flags().StringVar(&labels, "labels", "", "State labels, e.g. IN,OUT,DEAD (default LABEL_VOCABULARY)")
	cmd.Flags().StringVar(&schema, "schema", "", "Column kinds, e.g. start=date,end=date or start=elapsed:days,end=elapsed:days")
	cmd.Flags().BoolVar(&validateMissing, "validate-missing", false, "Fail on missing values in role columns")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log progress")
	cmd.Flags().BoolVar(&polishOut, "polish", false, "Collapse transitions sharing a time point")
	cmd.Flags().IntVar(&workers, "workers", 0, "Subjects expanded concurrently (default AUGMENT_WORKERS)")
	roleFlags(cmd, &roles)
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func polishCmd() *cobra.Command {
	var (
		in, out, subject, schema, format string
		collapse                         bool
	)

	cmd := &cobra.Command{
		Use:   "polish",
		Short: "Report or collapse transitions of one subject sharing a time point",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFrame(cmd, in, schema)
			if err != nil {
				return err
			}
			mode := polish.ModeReport
			if collapse {
				mode = polish.ModeCollapse
			}
			res, err := polish.Polish(f, polish.Options{SubjectColumn: subject, Mode: mode})
			if err != nil {
				return err
			}

			if mode == polish.ModeCollapse {
				fmt.Fprintf(cmd.ErrOrStderr(), "dropped %d row(s) from %d group(s)\n", res.Dropped, len(res.Groups))
				return writeFrame(cmd, res.Frame, out, format)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-20s %-12s %-10s %s\n", "SUBJECT", "TIME", "KIND", "STATUSES")
			for _, g := range res.Groups {
				kind := "redundant"
				if g.Conflict {
					kind = "conflict"
				}
				fmt.Fprintf(w, "%-20s %-12g %-10s %v\n", g.Subject, g.Time, kind, g.Statuses)
			}
			fmt.Fprintf(w, "%d conflict(s), %d redundant group(s)\n", res.Conflicts, res.Redundant)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Augmented CSV file, - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "Output file for --collapse (default stdout)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject identifier column")
	cmd.Flags().StringVar(&schema, "schema", "", "Column kinds, e.g. augmented_int=int")
	cmd.Flags().StringVar(&format, "format", formatCSV, "Output format for --collapse: csv, json or json-rows")
	cmd.Flags().BoolVar(&collapse, "collapse", false, "Keep only the last row of each same-time group")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
