/*
Copyright © 2023-2024 modx

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/modx/enginerw/internal/colors"
	"github.com/modx/enginerw/internal/magic"
	"github.com/modx/enginerw/pkg/ar"
	"github.com/modx/enginerw/pkg/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	ArchiveCmd.AddCommand(archiveLsCmd)
	archiveLsCmd.Flags().StringP("filter", "f", "", "Only list members whose name contains this string")
	archiveLsCmd.Flags().Bool("dups", false, "Only list members whose name is not unique")
	viper.BindPFlag("archive.ls.filter", archiveLsCmd.Flags().Lookup("filter"))
	viper.BindPFlag("archive.ls.dups", archiveLsCmd.Flags().Lookup("dups"))
}

// archiveLsCmd represents the archive ls command
var archiveLsCmd = &cobra.Command{
	Use:   "ls <LIB.a>",
	Short: "List the members of a static library",
	Example: heredoc.Doc(`
		# List the object files of the iOS player library
		❯ enginerw archive ls Build/Xcode/Libraries/libiPhone-lib.a

		# Find members that cannot be rewritten because their name repeats
		❯ enginerw archive ls --dups Build/Xcode/Libraries/libiPhone-lib.a`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}

		path := filepath.Clean(args[0])
		if ok, err := magic.IsArchive(afero.NewOsFs(), path); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%s is not a static library", path)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		idx, err := ar.Parse(f, info.Size())
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		filter := viper.GetString("archive.ls.filter")
		onlyDups := viper.GetBool("archive.ls.dups")

		tb := table.NewTable()
		tb.SetHeaders("MEMBER", "HEADER", "DATA", "SIZE", "")
		tb.SetColumnAlignment(1, lipgloss.Right)
		tb.SetColumnAlignment(2, lipgloss.Right)
		tb.SetColumnAlignment(3, lipgloss.Right)
		dups := 0
		for _, m := range idx.Members() {
			dup := idx.IsDuplicate(m.Name)
			if dup {
				dups++
			}
			if filter != "" && !strings.Contains(m.Name, filter) {
				continue
			}
			if onlyDups && !dup {
				continue
			}
			mark := ""
			if dup {
				mark = colors.Error("duplicate")
			}
			tb.AppendRow(m.Name,
				fmt.Sprintf("%#x", m.Header),
				fmt.Sprintf("%#x", m.Offset),
				humanize.Bytes(uint64(m.Length)),
				mark)
		}
		if err := tb.Print(os.Stdout); err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"members":    len(idx.Members()),
			"duplicates": dups,
			"size":       humanize.Bytes(uint64(info.Size())),
		}).Info(path)
		return nil
	},
}
