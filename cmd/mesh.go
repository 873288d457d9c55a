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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flowviz/visdump/mesh"
)

// MeshCmd represents the mesh command
var MeshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Summarize mesh geometry: element type, counts, centroids",
	Long:  `Summarize mesh geometry: element type, counts, centroids`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		file, _ := cmd.Flags().GetString("file")
		key, _ := cmd.Flags().GetString("key")
		round, _ := cmd.Flags().GetInt("round")
		preview, _ := cmd.Flags().GetInt("preview")
		if err := runMesh(filepath.Join(dir, file), key, round, preview); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(MeshCmd)
	MeshCmd.Flags().StringP("dir", "d", ".", "directory containing the vis files")
	MeshCmd.Flags().StringP("file", "F", mesh.DefaultMeshFile, "mesh filename")
	MeshCmd.Flags().StringP("key", "k", "", "mesh snapshot key (cycle number); default is the first")
	MeshCmd.Flags().IntP("round", "r", mesh.DefaultRound, "centroid rounding, decimal places")
	MeshCmd.Flags().IntP("preview", "n", 5, "number of centroids to print")
}

func runMesh(path, key string, round, preview int) error {
	etype, coords, conn, err := mesh.ReadMesh(path, key)
	if err != nil {
		return err
	}
	fmt.Printf("[%s]\t\t= element type (%d nodes/element)\n", etype, etype.NumNodes())
	fmt.Printf("%d\t\t\t= nodes\n", len(coords))
	fmt.Printf("%d\t\t\t= elements\n", len(conn))

	centroids, err := mesh.Centroids(path, key, round)
	if err != nil {
		return err
	}
	n, dim := centroids.Dims()
	if preview > n {
		preview = n
	}
	fmt.Printf("first %d centroids (%dD):\n", preview, dim)
	for i := 0; i < preview; i++ {
		fmt.Printf(" ")
		for j := 0; j < dim; j++ {
			fmt.Printf(" %12.5f", centroids.At(i, j))
		}
		fmt.Printf("\n")
	}
	return nil
}
