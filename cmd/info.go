/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowviz/visdump/visfile"
)

// InfoCmd represents the info command
var InfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize a visualization dump: fields, cycles, times",
	Long:  `Summarize a visualization dump: fields, cycles, times`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		domain, _ := cmd.Flags().GetString("domain")
		unit, _ := cmd.Flags().GetString("timeUnit")
		if err := runInfo(dir, domain, unit); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(InfoCmd)
	InfoCmd.Flags().StringP("dir", "d", ".", "directory containing the vis files")
	InfoCmd.Flags().StringP("domain", "D", "", "simulator domain name (e.g. surface)")
	InfoCmd.Flags().StringP("timeUnit", "u", "yr", "time unit: yr, noleap, d, hr, s")
}

func runInfo(dir, domain, unit string) error {
	opts := []visfile.Option{visfile.WithTimeUnit(unit)}
	if domain != "" {
		opts = append(opts, visfile.WithDomain(domain))
	}
	v, err := visfile.Open(dir, opts...)
	if err != nil {
		return err
	}
	defer v.Close()

	fmt.Printf("%s\t\t= data file\n", v.Filename)
	fmt.Printf("%s\t\t= mesh file\n", v.MeshFilename)
	fmt.Printf("%d\t\t\t= cycles\n", len(v.Cycles))
	if len(v.Times) > 0 {
		fmt.Printf("[%g, %g] %s\t= time range\n", v.Times[0], v.Times[len(v.Times)-1], v.TimeUnit)
	}

	fields, err := v.Fields()
	if err != nil {
		return err
	}
	fmt.Printf("%d fields:\n", len(fields))
	for _, name := range fields {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
