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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ghodss/yaml"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/flowviz/visdump/visfile"
)

// ExportParameters drives one export run.
type ExportParameters struct {
	Directory string    `yaml:"Directory"`
	Domain    string    `yaml:"Domain"`
	TimeUnit  string    `yaml:"TimeUnit"`
	Variables []string  `yaml:"Variables"`
	Order     []string  `yaml:"Order"`
	Round     int       `yaml:"Round"`
	Cycles    []int     `yaml:"Cycles"`
	Times     []float64 `yaml:"Times"`
	TimeEps   float64   `yaml:"TimeEps"`
	Output    string    `yaml:"Output"` // empty or "-" writes to stdout
}

func (ep *ExportParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ep)
}

func (ep *ExportParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Directory\n", ep.Directory)
	fmt.Printf("[%s]\t\t\t= Domain\n", ep.Domain)
	fmt.Printf("[%s]\t\t\t= TimeUnit\n", ep.TimeUnit)
	fmt.Printf("%v\t= Variables\n", ep.Variables)
	fmt.Printf("%v\t\t\t= Order\n", ep.Order)
}

// ExportCmd represents the export command
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export field values per cycle to CSV, optionally in structured order",
	Long: `Export field values per cycle to CSV, optionally in structured order.

Runs are described by a YAML parameters file:

########################################
Directory: ./run1
Domain: surface
TimeUnit: d
Variables:
  - pressure
  - saturation_liquid
Order: [z]
Output: fields.csv
########################################
`,
	Run: func(cmd *cobra.Command, args []string) {
		paramsFile, err := cmd.Flags().GetString("parametersFile")
		if err != nil {
			panic(err)
		}
		if len(paramsFile) == 0 {
			fmt.Printf("error: must supply an export parameters file (-I, --parametersFile)\n")
			os.Exit(1)
		}
		data, err := os.ReadFile(paramsFile)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		ep := &ExportParameters{}
		if err = ep.Parse(data); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		ep.Print()
		if err = runExport(ep); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ExportCmd)
	ExportCmd.Flags().StringP("parametersFile", "I", "", "YAML file describing the export run")
	ExportCmd.Flags().BoolP("profile", "p", false, "write a CPU profile for the run")
}

func runExport(ep *ExportParameters) error {
	var opts []visfile.Option
	if ep.Domain != "" {
		opts = append(opts, visfile.WithDomain(ep.Domain))
	}
	if ep.TimeUnit != "" {
		opts = append(opts, visfile.WithTimeUnit(ep.TimeUnit))
	}
	v, err := visfile.Open(ep.Directory, opts...)
	if err != nil {
		return err
	}
	defer v.Close()

	if len(ep.Cycles) > 0 {
		if err = v.FilterCycles(ep.Cycles...); err != nil {
			return err
		}
	}
	if len(ep.Times) > 0 {
		eps := ep.TimeEps
		if eps == 0 {
			eps = 1.0
		}
		if err = v.FilterTimes(eps, ep.Times...); err != nil {
			return err
		}
	}
	if len(ep.Order) > 0 {
		meshOpts := []visfile.MeshOption{visfile.WithOrder(ep.Order...)}
		if ep.Round > 0 {
			meshOpts = append(meshOpts, visfile.WithRound(ep.Round))
		}
		if err = v.LoadMesh(meshOpts...); err != nil {
			return err
		}
	}

	var out io.Writer = os.Stdout
	if ep.Output != "" && ep.Output != "-" {
		f, err := os.Create(ep.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	for _, name := range ep.Variables {
		arr, err := v.GetArray(name)
		if err != nil {
			return err
		}
		_, nc := arr.Dims()
		for i, key := range v.Cycles {
			record := make([]string, 0, nc+3)
			record = append(record, name, key,
				strconv.FormatFloat(v.Times[i], 'g', -1, 64))
			for j := 0; j < nc; j++ {
				record = append(record, strconv.FormatFloat(arr.At(i, j), 'g', -1, 64))
			}
			if err = w.Write(record); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
