package main

import (
	"encoding/json"
	"fmt"
	"io"

	"kdash-mock/internal/mock"
	"kdash-mock/internal/models"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var (
	snapshotOutput string
	snapshotSeed   uint64
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <cluster-id>",
	Short: "Print one mock cluster snapshot",
	Long: `Generate the snapshot of a mock cluster as of now and print it.

Example:
  kdash-mock snapshot mock-cluster-3 --output yaml --seed 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rnd mock.Rand
		if snapshotSeed != 0 {
			rnd = mock.NewSeededRand(snapshotSeed)
		}
		return writeSnapshot(cmd.OutOrStdout(), mock.NewGenerator(nil, rnd), args[0], snapshotOutput)
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "json", "output format: json or yaml")
	snapshotCmd.Flags().Uint64Var(&snapshotSeed, "seed", 0, "seed for the port and endpoint node draws (0 = unseeded)")
}

func writeSnapshot(w io.Writer, generator *mock.Generator, id, format string) error {
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown output format %q", format)
	}

	snapshot, err := generator.BuildSnapshot(models.ClusterRef{ID: id})
	if err != nil {
		return err
	}

	var out []byte
	if format == "yaml" {
		out, err = yaml.Marshal(snapshot)
	} else {
		out, err = json.MarshalIndent(snapshot, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if format == "json" {
		out = append(out, '\n')
	}

	_, err = w.Write(out)
	return err
}
