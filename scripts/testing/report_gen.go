// Copyright 2026 The Vendasol Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command report_gen joins `go test -json` output with the test annotation
// docblocks (TestPurpose:, Security:, Test Case ID:, ...) scanned from the
// _test.go sources and renders a Markdown test report plus a JSON artifact.
//
// Usage:
//
//	go test -json ./... > /tmp/out.json
//	go run scripts/testing/report_gen.go -input /tmp/out.json \
//	    -out-md report.md -out-json report.json
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// annotation is the metadata carried in a test's doc comment.
type annotation struct {
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
}

type result struct {
	Name       string     `json:"name"`
	Package    string     `json:"package"`
	Status     string     `json:"status"`
	Elapsed    float64    `json:"elapsed_seconds"`
	Failure    string     `json:"failure_reason,omitempty"`
	Annotation annotation `json:"annotations"`
}

type report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Results     []result  `json:"results"`
}

func main() {
	inputPath := flag.String("input", "", "go test -json output file")
	outMD := flag.String("out-md", "", "Markdown report path")
	outJSON := flag.String("out-json", "", "JSON report path")
	title := flag.String("title", "Test Report", "report title")
	flag.Parse()

	if *inputPath == "" || *outMD == "" {
		fmt.Println("Usage: report_gen -input <json_file> -out-md <md_file> [-out-json <json_file>]")
		os.Exit(1)
	}

	annotations := scanAnnotations(".")
	rep := buildReport(*inputPath, annotations)

	if err := writeMarkdown(rep, *outMD, *title); err != nil {
		fmt.Printf("Error writing markdown: %v\n", err)
		os.Exit(1)
	}
	if *outJSON != "" {
		if err := writeJSON(rep, *outJSON); err != nil {
			fmt.Printf("Error writing json: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Report: %d passed, %d failed, %d skipped\n", rep.Passed, rep.Failed, rep.Skipped)
	if rep.Failed > 0 {
		os.Exit(1)
	}
}

// scanAnnotations walks the tree and maps "relative/dir.TestName" to the
// docblock annotations on that test.
func scanAnnotations(root string) map[string]annotation {
	out := make(map[string]annotation)
	fset := token.NewFileSet()

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}

		dir := strings.TrimPrefix(filepath.Dir(path), "./")
		for _, decl := range node.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Doc == nil || !strings.HasPrefix(fn.Name.Name, "Test") {
				continue
			}
			var a annotation
			for _, line := range fn.Doc.List {
				text := strings.TrimSpace(strings.TrimPrefix(line.Text, "//"))
				for prefix, field := range map[string]*string{
					"TestPurpose:":  &a.Purpose,
					"Scope:":        &a.Scope,
					"Security:":     &a.Security,
					"Expected:":     &a.Expected,
					"Test Case ID:": &a.TestCaseID,
				} {
					if strings.HasPrefix(text, prefix) {
						*field = strings.TrimSpace(strings.TrimPrefix(text, prefix))
					}
				}
			}
			out[dir+"."+fn.Name.Name] = a
		}
		return nil
	})

	return out
}

// buildReport folds the `go test -json` event stream into one result per
// test, attaching any scanned annotations.
func buildReport(path string, annotations map[string]annotation) report {
	type event struct {
		Action  string  `json:"Action"`
		Package string  `json:"Package"`
		Test    string  `json:"Test"`
		Elapsed float64 `json:"Elapsed"`
		Output  string  `json:"Output"`
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Printf("Error opening test output: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	const modulePrefix = "github.com/vendasol/vendasol/"
	results := make(map[string]*result)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var ev event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil || ev.Test == "" {
			continue
		}
		// Subtests inherit their parent's annotations via the root name.
		rootName, _, _ := strings.Cut(ev.Test, "/")
		pkg := strings.TrimPrefix(ev.Package, modulePrefix)

		key := pkg + "/" + ev.Test
		r, ok := results[key]
		if !ok {
			r = &result{
				Name:       ev.Test,
				Package:    pkg,
				Status:     "unknown",
				Annotation: annotations[pkg+"."+rootName],
			}
			results[key] = r
		}

		switch ev.Action {
		case "pass", "fail", "skip":
			r.Status = ev.Action
			r.Elapsed = ev.Elapsed
		case "output":
			if strings.Contains(ev.Output, "--- FAIL") || strings.Contains(ev.Output, "Error:") {
				r.Failure += strings.TrimSpace(ev.Output) + "\n"
			}
		}
	}

	rep := report{GeneratedAt: time.Now()}
	for _, r := range results {
		rep.Results = append(rep.Results, *r)
		switch r.Status {
		case "pass":
			rep.Passed++
		case "fail":
			rep.Failed++
		case "skip":
			rep.Skipped++
		}
	}
	sort.Slice(rep.Results, func(i, j int) bool {
		if rep.Results[i].Package != rep.Results[j].Package {
			return rep.Results[i].Package < rep.Results[j].Package
		}
		return rep.Results[i].Name < rep.Results[j].Name
	})
	return rep
}

func writeMarkdown(rep report, path, title string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Vendasol %s\n\n", title)
	fmt.Fprintf(&sb, "Generated: %s\n\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "**%d passed / %d failed / %d skipped**\n", rep.Passed, rep.Failed, rep.Skipped)

	statusMark := map[string]string{"pass": "✅", "fail": "❌", "skip": "⏭"}

	currentPkg := ""
	for _, r := range rep.Results {
		if r.Package != currentPkg {
			currentPkg = r.Package
			fmt.Fprintf(&sb, "\n## %s\n\n", currentPkg)
			sb.WriteString("| Test | ID | Status | Purpose |\n|---|---|---|---|\n")
		}
		mark, ok := statusMark[r.Status]
		if !ok {
			mark = r.Status
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			r.Name, r.Annotation.TestCaseID, mark, r.Annotation.Purpose)
	}

	if rep.Failed > 0 {
		sb.WriteString("\n## Failures\n\n")
		for _, r := range rep.Results {
			if r.Status != "fail" {
				continue
			}
			fmt.Fprintf(&sb, "### %s/%s\n\n```\n%s```\n\n", r.Package, r.Name, r.Failure)
		}
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func writeJSON(rep report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
