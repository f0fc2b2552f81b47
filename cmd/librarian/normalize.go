// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/librarian/internal/render"
	"github.com/pdiddy/librarian/pkg/types"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Normalize raw archive records",
	Long: `Normalize reads one raw record (a JSON object) or a list of records (a
JSON array) from file or stdin and prints them in canonical form. --kind
names the table the records came from; it selects which columns hold the
author and the media link.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().String("kind", "text", "record kind: audio, video, book, note or text")
	normalizeCmd.Flags().Bool("json", false, "output as JSON")
	normalizeCmd.Flags().Bool("yaml", false, "output as YAML")

	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	format, err := render.FormatFromFlags(asJSON, asYAML)
	if err != nil {
		return err
	}
	kindTag, _ := cmd.Flags().GetString("kind")
	kind := types.ParseKind(kindTag)

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	n, err := newNormalizer(cfg.Normalize)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	records, single, err := readRecords(in)
	if err != nil {
		return err
	}
	tagged := make([]types.TaggedRecord, len(records))
	for i, r := range records {
		tagged[i] = types.TaggedRecord{Kind: kind, Record: r}
	}
	resources := n.All(tagged)

	out := cmd.OutOrStdout()
	switch {
	case format != render.Table && single:
		return render.Write(out, format, resources[0])
	case format != render.Table:
		return render.Write(out, format, resources)
	case single:
		render.Resource(out, resources[0])
	default:
		render.Resources(out, resources)
	}
	return nil
}

// readRecords decodes a JSON object or array of objects, keeping numbers
// in their original text. single reports whether the input was one object.
func readRecords(r io.Reader) (records []types.RawRecord, single bool, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("reading records: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, fmt.Errorf("no input records")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if data[0] == '[' {
		if err := dec.Decode(&records); err != nil {
			return nil, false, fmt.Errorf("parsing record list: %w", err)
		}
		if len(records) == 0 {
			return nil, false, fmt.Errorf("no input records")
		}
		return records, false, nil
	}

	var rec types.RawRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, false, fmt.Errorf("parsing record: %w", err)
	}
	return []types.RawRecord{rec}, true, nil
}
