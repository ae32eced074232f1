// customize rewrites the starter template for a new project: module path in
// go.mod, import paths in every Go file, and README metadata.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	templateOwner = "ammons-datalabs"
	templateName  = "observable-agent-starter"
	templateTitle = "# Observable Agent Starter"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

var skipDirs = map[string]bool{
	".git":         true,
	"_examples":    true,
	"vendor":       true,
	"node_modules": true,
}

type customizer struct {
	root        string
	oldModule   string
	newModule   string
	name        string
	author      string
	email       string
	description string
	dryRun      bool
	rewritten   []string
}

func main() {
	name := flag.String("name", "", "New project short name (lowercase letters, digits, hyphens)")
	author := flag.String("author", "", "Author name or GitHub org/user for the module path")
	email := flag.String("email", "", "Author email (recorded in README)")
	description := flag.String("description", "", "One-line project description")
	dryRun := flag.Bool("dry-run", false, "Print planned rewrites without writing")
	flag.Parse()

	if *name == "" || *author == "" {
		fmt.Fprintln(os.Stderr, "Error: -name and -author are required")
		flag.Usage()
		os.Exit(1)
	}
	if !namePattern.MatchString(*name) {
		fmt.Fprintf(os.Stderr, "Error: project name %q must be lowercase, start with a letter,\n", *name)
		fmt.Fprintln(os.Stderr, "and contain only letters, digits, and hyphens.")
		os.Exit(1)
	}

	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c := &customizer{
		root:        root,
		oldModule:   fmt.Sprintf("github.com/%s/%s", templateOwner, templateName),
		newModule:   fmt.Sprintf("github.com/%s/%s", strings.ToLower(*author), *name),
		name:        *name,
		author:      *author,
		email:       *email,
		description: *description,
		dryRun:      *dryRun,
	}

	if err := c.run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if c.dryRun {
		fmt.Printf("\nDry run: %d files would be rewritten.\n", len(c.rewritten))
	} else {
		fmt.Printf("\nCustomized %d files. New module path: %s\n", len(c.rewritten), c.newModule)
	}
}

func (c *customizer) run() error {
	fmt.Printf("Rewriting module path %s -> %s\n", c.oldModule, c.newModule)

	if err := c.rewriteGoFiles(); err != nil {
		return err
	}
	if err := c.rewriteGoMod(); err != nil {
		return err
	}
	return c.rewriteReadme()
}

func (c *customizer) rewriteGoFiles() error {
	return filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		return c.rewriteFile(path, func(content string) string {
			return strings.ReplaceAll(content, c.oldModule, c.newModule)
		})
	})
}

func (c *customizer) rewriteGoMod() error {
	return c.rewriteFile(filepath.Join(c.root, "go.mod"), func(content string) string {
		return strings.Replace(content, "module "+c.oldModule, "module "+c.newModule, 1)
	})
}

func (c *customizer) rewriteReadme() error {
	path := filepath.Join(c.root, "README.md")
	if _, err := os.Stat(path); err != nil {
		fmt.Println("  Warning: README.md not found, skipping")
		return nil
	}
	return c.rewriteFile(path, func(content string) string {
		title := "# " + titleCase(c.name)
		content = strings.Replace(content, templateTitle, title, 1)
		content = strings.ReplaceAll(content, templateOwner+"/"+templateName, strings.ToLower(c.author)+"/"+c.name)
		content = strings.ReplaceAll(content, templateName, c.name)
		if c.description != "" {
			content = replaceDescriptionLine(content, title, c.description)
		}
		if c.author != "" && c.email != "" {
			content = strings.TrimRight(content, "\n") +
				fmt.Sprintf("\n\n## Maintainer\n\n%s <%s>\n", c.author, c.email)
		}
		return content
	})
}

// replaceDescriptionLine swaps the first non-empty line after the title for
// the new description.
func replaceDescriptionLine(content, title, description string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line != title {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) != "" {
				lines[j] = description
				return strings.Join(lines, "\n")
			}
		}
		break
	}
	return content
}

func (c *customizer) rewriteFile(path string, transform func(string) string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(raw)
	updated := transform(content)
	if updated == content {
		return nil
	}

	rel, relErr := filepath.Rel(c.root, path)
	if relErr != nil {
		rel = path
	}
	c.rewritten = append(c.rewritten, rel)

	if c.dryRun {
		fmt.Printf("  Would update: %s\n", rel)
		return nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("  Updated: %s\n", rel)
	return nil
}

func titleCase(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
