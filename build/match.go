package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssel/selector"
	"cssel/state"
	"cssel/stylesheet"
)

// compiled pairs a selector's canonical text with its prepared matcher.
type compiled struct {
	text string
	m    *selector.Matcher
}

// hit is a single match, which element matched and which selector found it.
type hit struct {
	ElementPath string
	Selector    string
}

// Match evaluates definition selectors against XML documents and prints what
// they find.
func Match(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("match")

	defPath := cmd.Args().Get(0)
	if len(defPath) == 0 {
		return errors.New("no definition has been specified")
	}
	defPath, err = filepath.Abs(defPath)
	if err != nil {
		return err
	}

	docs := cmd.Args().Slice()[1:]
	if len(docs) == 0 {
		return errors.New("no documents to match against have been specified")
	}

	if cmd.Bool("first") {
		env.Cfg.Match.FirstOnly = true
	}
	if cmd.Bool("path") {
		env.Cfg.Match.ShowPath = true
	}
	countOnly := cmd.Bool("count")

	log.Info("Matching starting", zap.String("definition", defPath), zap.Int("documents", len(docs)))
	defer func(start time.Time) {
		log.Info("Matching completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	f, err := os.Open(defPath)
	if err != nil {
		return fmt.Errorf("unable to open definition: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 4)
	n, _ := io.ReadFull(f, buf)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("unable to rewind definition: %w", err)
	}

	def, workDir, err := prepareDefinition(ctx, selectReader(f, detectUTF(buf[:n])), filepath.Base(defPath), log)
	if err != nil {
		return fmt.Errorf("unable to parse definition source (%s): %w", defPath, err)
	}
	if env.Rpt == nil {
		// report cleanup removes stored work directories, without report
		// nothing else would
		defer os.RemoveAll(workDir)
	}

	selectors, err := compileDefinition(def, log)
	if err != nil {
		return err
	}

	for _, docPath := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		docPath, err := filepath.Abs(docPath)
		if err != nil {
			return err
		}
		if err := matchDocument(ctx, docPath, selectors, countOnly, log); err != nil {
			log.Error("Unable to process document", zap.String("file", docPath), zap.Error(err))
		}
	}
	return nil
}

// compileDefinition prepares matchers for every selector the definition
// carries. Selectors that cannot be matched are skipped with a warning, a
// definition where nothing survives is an error.
func compileDefinition(def *stylesheet.Definition, log *zap.Logger) ([]compiled, error) {
	var result []compiled
	for i, ruleDef := range def.Rules {
		for j, selDef := range ruleDef.Selectors {
			node, err := selDef.Node()
			if err != nil {
				log.Warn("Skipping broken selector",
					zap.Int("rule", i), zap.Int("selector", j), zap.Error(err))
				continue
			}
			m, err := selector.Compile(node)
			if err != nil {
				log.Warn("Skipping selector unusable for matching",
					zap.Int("rule", i), zap.Int("selector", j), zap.String("text", node.String()), zap.Error(err))
				continue
			}
			result = append(result, compiled{text: node.String(), m: m})
		}
	}
	if len(result) == 0 {
		return nil, errors.New("definition has no selectors usable for matching")
	}
	return result, nil
}

func matchDocument(ctx context.Context, path string, selectors []compiled, countOnly bool, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	doc, err := loadDocument(path)
	if err != nil {
		return err
	}

	// Store matched document for debugging
	if err := env.Rpt.StoreCopy("match-"+filepath.Base(path), path); err != nil {
		log.Warn("Unable to store document for debugging", zap.String("file", path), zap.Error(err))
	}

	hits := evaluate(doc, selectors, env.Cfg.Match.FirstOnly)
	log.Debug("Document evaluated", zap.String("file", path), zap.Int("matches", len(hits)))

	for _, line := range formatMatches(path, hits, countOnly, env.Cfg.Match.ShowPath) {
		fmt.Println(line)
	}
	return nil
}

// evaluate runs compiled selectors against the document root collecting
// matches in document order per selector. With firstOnly only the first
// match of each selector is reported.
func evaluate(doc *etree.Document, selectors []compiled, firstOnly bool) []hit {
	root := doc.Root()

	result := make([]hit, 0, len(selectors))
	for _, sel := range selectors {
		if firstOnly {
			if el := sel.m.First(root); el != nil {
				result = append(result, hit{ElementPath: el.GetPath(), Selector: sel.text})
			}
			continue
		}
		for _, el := range sel.m.All(root) {
			result = append(result, hit{ElementPath: el.GetPath(), Selector: sel.text})
		}
	}
	return result
}

// formatMatches renders evaluation results for printing.
func formatMatches(path string, hits []hit, countOnly, showPath bool) []string {
	if countOnly {
		if showPath {
			return []string{fmt.Sprintf("%s: %d", path, len(hits))}
		}
		return []string{fmt.Sprintf("%d", len(hits))}
	}

	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		if showPath {
			lines = append(lines, fmt.Sprintf("%s: %s <= %s", path, h.ElementPath, h.Selector))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s <= %s", h.ElementPath, h.Selector))
	}
	return lines
}
