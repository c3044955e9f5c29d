package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var industriesWeights bool

var industriesCmd = &cobra.Command{
	Use:   "industries",
	Short: "List the configured industry profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if !industriesWeights {
			return enc.Encode(env.Classifier.Industries())
		}

		weights := make(map[string]map[string]float64)
		for _, industry := range env.Classifier.Industries() {
			weights[industry] = env.Classifier.Weights(industry)
		}
		return enc.Encode(weights)
	},
}

func init() {
	industriesCmd.Flags().BoolVar(&industriesWeights, "weights", false, "include current indicator weights")
	rootCmd.AddCommand(industriesCmd)
}
