package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/qagentic/qagentic-go/flags"
	"github.com/qagentic/qagentic-go/testlist"
)

// ListCommand defines the "list" command for printing the test functions a
// run would execute, without running anything.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the test packages and test functions a run would execute",
		Description: `Scans the test directory for _test.go files and prints every package
and test function a run would execute, without compiling or running anything.

Examples:
  qagentic list --testdir ./mysuite
  qagentic list --testdir ./mysuite --packages ./internal/...`,
		Flags: []cli.Flag{
			flags.TestDir,
			flags.Packages,
		},
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	testDir, err := filepath.Abs(c.String(flags.TestDir.Name))
	if err != nil {
		return fmt.Errorf("failed to resolve test directory: %w", err)
	}

	pattern := c.String(flags.Packages.Name)
	root := testDir
	if pattern != "" && pattern != "./..." {
		root = filepath.Join(testDir, filepath.FromSlash(pattern))
	}

	packages, err := testlist.FindTestPackages(root, testDir)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		fmt.Fprintln(c.App.Writer, "no test packages found")
		return nil
	}

	total := 0
	for _, pkg := range packages {
		tests, err := testlist.FindTestFunctions(pkg, testDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s (%d tests)\n", pkg, len(tests))
		for _, name := range tests {
			fmt.Fprintf(c.App.Writer, "  %s\n", name)
		}
		total += len(tests)
	}
	fmt.Fprintf(c.App.Writer, "\n%d tests in %d packages\n", total, len(packages))
	return nil
}
