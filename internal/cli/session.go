package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/velora/leadflow"
	"github.com/velora/leadflow/internal/presentation/tui"
	"github.com/velora/leadflow/pkg/adapters/memory"
	"github.com/velora/leadflow/pkg/adapters/scriptfile"
	"github.com/velora/leadflow/pkg/domain"
)

// RunSession drives one interactive qualification call on the terminal.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	useMarkdown := !opts.Plain && isTerminal()
	if useMarkdown {
		tui.PrintBanner()
	}

	store := memory.NewStore()
	engine := leadflow.New(leadflow.Stores{
		Scripts:    scriptfile.NewLoader(opts.ScriptsDir),
		Executions: store,
		Leads:      store,
		Activity:   store,
	}, leadflow.WithLogger(logger))
	defer engine.Close()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	state, err := engine.StartExecution(sigCtx, opts.ScriptID, opts.LeadID, opts.UserID)
	if err != nil {
		return fmt.Errorf("error starting script: %w", err)
	}

	render := renderFunc(useMarkdown)
	input := bufio.NewScanner(NewInterruptibleReader(os.Stdin, sigCtx.Done()))

	for !state.IsComplete {
		node := state.CurrentNode
		printQuestion(render, node)

		fmt.Print("> ")
		if !input.Scan() {
			return handleExecutionError(fmt.Errorf("interrupted"))
		}
		answer := strings.TrimSpace(input.Text())

		state, err = engine.AnswerNode(sigCtx, state.ExecutionID, node.ID, answer)
		if err != nil {
			return handleExecutionError(err)
		}
	}

	printSummary(render, state)
	return nil
}

func renderFunc(useMarkdown bool) func(string) (string, error) {
	if useMarkdown {
		return tui.NewRenderer()
	}
	return func(s string) (string, error) { return s, nil }
}

func printQuestion(render func(string) (string, error), node *domain.Node) {
	out, err := render(questionMarkdown(node))
	if err != nil {
		out = questionMarkdown(node)
	}
	fmt.Println(out)
}

func printSummary(render func(string) (string, error), state *domain.ExecutionState) {
	md := fmt.Sprintf("## Qualification terminée\n\nScore: **%d/%d** (%d%%)\n\n%s\n",
		state.TotalScore, state.MaxPossibleScore, state.ScorePercentage, state.Recommendation)
	out, err := render(md)
	if err != nil {
		out = md
	}
	fmt.Println(out)
	printSystemMessage("Recommended action: %s", state.RecommendedAction)
}
