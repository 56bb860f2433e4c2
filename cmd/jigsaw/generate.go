package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alem-hub/jigsaw-mixer/config"
	"github.com/alem-hub/jigsaw-mixer/internal/application/command"
	"github.com/alem-hub/jigsaw-mixer/internal/application/query"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/persistence/memory"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Assign topics and print home groups",
	Long: `Generate assigns expert topics and builds home groups once, without
starting the server. Topics and students come from a preset file, from
flags, or both.

Examples:
  jigsaw generate --topics Forests,Oceans --students "Ann, Bob, Cid, Dan"
  jigsaw generate --preset lesson.toml --seed 7 --json
  cat class.txt | jigsaw generate --topics A,B,C --students-file -`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	generatePreset       string
	generateTopics       []string
	generateStudents     string
	generateStudentsFile string
	generateSeed         uint64
	generateJSON         bool
	generateAllowSmall   bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generatePreset, "preset", "", "TOML lesson preset")
	generateCmd.Flags().StringSliceVar(&generateTopics, "topics", nil, "expert topics, comma separated")
	generateCmd.Flags().StringVar(&generateStudents, "students", "", "student names separated by commas or newlines")
	generateCmd.Flags().StringVar(&generateStudentsFile, "students-file", "", "file with student names, - for stdin")
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 0, "assignment seed, 0 for random")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "output as JSON")
	generateCmd.Flags().BoolVar(&generateAllowSmall, "allow-small", false, "generate with fewer than 2 topics or 4 students")
}

// generateInput is everything one generation run needs.
type generateInput struct {
	Preset       *config.Preset
	Topics       []string
	StudentsText string
	Seed         uint64
	AllowSmall   bool
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	in := generateInput{
		Topics:       generateTopics,
		StudentsText: generateStudents,
		Seed:         generateSeed,
		AllowSmall:   generateAllowSmall,
	}

	if generatePreset != "" {
		preset, err := config.LoadPreset(generatePreset, config.SessionConfig{
			ExpertDuration:   jigsaw.DefaultExpertDuration,
			TeachingDuration: jigsaw.DefaultTeachingDuration,
		})
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			preset.Seed = generateSeed
		}
		in.Preset = preset
	}

	if generateStudentsFile != "" {
		text, err := readStudentsFile(cmd.InOrStdin(), generateStudentsFile)
		if err != nil {
			return err
		}
		in.StudentsText = strings.Join([]string{in.StudentsText, text}, "\n")
	}

	view, err := generate(cmd.Context(), in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if generateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return renderGroups(out, view)
}

func readStudentsFile(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read students from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read students file: %w", err)
	}
	return string(data), nil
}

// generate runs the regular commands against a throwaway session and
// returns the resulting view.
func generate(ctx context.Context, in generateInput) (*query.SessionView, error) {
	session := newSession(config.SessionConfig{
		ExpertDuration:   jigsaw.DefaultExpertDuration,
		TeachingDuration: jigsaw.DefaultTeachingDuration,
		Seed:             in.Seed,
	}, in.Preset, nil)
	store := memory.NewSessionStore(session)
	commands := command.NewHandlers(command.Dependencies{Store: store})

	if in.Preset != nil {
		if err := applyPreset(ctx, commands, in.Preset); err != nil {
			return nil, err
		}
	}

	for _, title := range in.Topics {
		if strings.TrimSpace(title) == "" {
			continue
		}
		if _, err := commands.AddTopic.Handle(ctx, command.AddTopicCommand{Title: title}); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(in.StudentsText) != "" {
		if _, err := commands.ImportStudents.Handle(ctx, command.ImportStudentsCommand{Text: in.StudentsText}); err != nil {
			return nil, err
		}
	}

	result, err := commands.GenerateGroups.Handle(ctx, command.GenerateGroupsCommand{AllowSmall: in.AllowSmall})
	if err != nil {
		return nil, err
	}
	if !result.Generated {
		return nil, errors.New("nothing to generate: add at least one topic and one student")
	}

	return query.NewGetSessionHandler(store, nil).Handle(ctx, query.GetSessionQuery{})
}

// renderGroups prints home groups with each member's topic. Topic titles
// are colored when out is a terminal.
func renderGroups(out io.Writer, view *query.SessionView) error {
	r := lipgloss.NewRenderer(out)
	heading := r.NewStyle().Bold(true)
	muted := r.NewStyle().Faint(true)

	width := 0
	for _, s := range view.Students {
		width = max(width, len([]rune(s.Name)))
	}

	var b strings.Builder
	if view.MainTopic != "" {
		fmt.Fprintln(&b, heading.Render(view.MainTopic))
		fmt.Fprintln(&b)
	}

	for i, g := range view.Groups {
		if i > 0 {
			fmt.Fprintln(&b)
		}
		fmt.Fprintf(&b, "%s %s\n", heading.Render(g.Name), muted.Render(fmt.Sprintf("(%d)", g.Size())))
		for _, m := range g.Members {
			topic := r.NewStyle().Foreground(lipgloss.Color(m.TopicColor)).Render(m.TopicTitle)
			if m.TopicID == "" {
				topic = muted.Render(m.TopicTitle)
			}
			fmt.Fprintf(&b, "  %-*s  %s\n", width, m.Name, topic)
		}
	}

	_, err := io.WriteString(out, b.String())
	return err
}
