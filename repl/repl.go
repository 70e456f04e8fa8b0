// Package repl implements the Read-Eval-Print Loop for the Luma
// programming language.
//
// The REPL provides an interactive interface for users to enter Luma
// code, have it compiled and run, and see the results immediately. It
// uses the Charm libraries (Bubbletea, Bubbles, and Lipgloss) to
// create a modern, user-friendly terminal interface with syntax
// highlighting and command history.
//
// Luma has no globals distinct from locals and no implicit last-
// expression value (a result only appears if the program calls
// #print), so the REPL keeps the whole session as one growing source
// buffer: each accepted line is appended, the buffer is recompiled and
// rerun from scratch, and the newly produced output (the text past
// what the previous run already produced) is what gets displayed.
// This gives `def`s entered on one line visible bindings on later
// lines without requiring the compiler or VM to support incremental
// compilation.
//
// The main entry point is the Start function, which initializes and
// runs the REPL.
package repl

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lumalang/luma/compiler"
	"github.com/lumalang/luma/lexer"
	"github.com/lumalang/luma/parser"
	"github.com/lumalang/luma/token"
	"github.com/lumalang/luma/vm"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = ">> "

	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = ".. "
)

// Options contains configuration options for the REPL.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Enable debug mode with more verbose output
}

// Start initializes and runs the REPL with the given username and options.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	sigilStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BE9FD"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// ErrorType represents the type of error that occurred.
type ErrorType int

const (
	NoError ErrorType = iota
	ParseError
	RuntimeError
)

// evalResultMsg carries the outcome of compiling and running one
// input back into Update.
type evalResultMsg struct {
	output     string
	isError    bool
	errorType  ErrorType
	elapsed    time.Duration
	nextSource string // the session source buffer to adopt on success
	nextOutput string // the cumulative VM output to adopt on success
}

// model holds the REPL's state.
type model struct {
	textInput textinput.Model
	history   []historyEntry
	username  string

	// source is every successfully-evaluated line so far, concatenated
	// with newlines; output is the full text the VM produced running
	// that source. Evaluating a new line reruns (source + "\n" + line)
	// from scratch and diffs the result against output.
	source string
	output string

	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
}

func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = `Enter Luma code, e.g. #print("hi")`
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		history:   []historyEntry{},
		username:  username,
		spinner:   s,
		options:   options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks if brackets, braces, and parentheses are balanced.
func isBalanced(input string) bool {
	var stack []rune
	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// evalCmd compiles and runs prevSource+"\n"+input as a whole program,
// and reports only the output text beyond what prevOutput already
// covers (prevSource's own output is a deterministic prefix of it,
// since Luma has no external mutable state besides read_file).
func evalCmd(input, prevSource, prevOutput string, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		candidate := input
		if prevSource != "" {
			candidate = prevSource + "\n" + input
		}

		p := parser.New(lexer.New(candidate))
		root := p.ParseProgram()
		if errs := p.Errors(); len(errs) != 0 {
			return evalResultMsg{
				output:    formatParseErrors(errs),
				isError:   true,
				errorType: ParseError,
				elapsed:   time.Since(start),
			}
		}

		c := compiler.New()
		if err := c.Compile(root); err != nil {
			return evalResultMsg{
				output:    formatCompileError(err),
				isError:   true,
				errorType: RuntimeError,
				elapsed:   time.Since(start),
			}
		}

		var buf bytes.Buffer
		machine := vm.New(c.Bytecode(), &buf)
		if err := machine.Run(); err != nil {
			return evalResultMsg{
				output:    formatRuntimeError(err.Error()),
				isError:   true,
				errorType: RuntimeError,
				elapsed:   time.Since(start),
			}
		}

		full := buf.String()
		shown := full
		if strings.HasPrefix(full, prevOutput) {
			shown = full[len(prevOutput):]
		}
		if shown == "" {
			shown = "(no output - call #print to see a value)"
		}

		if debug {
			shown += "\n--- bytecode ---\n" + c.Bytecode().Instructions.String()
		}

		return evalResultMsg{
			output:     shown,
			elapsed:    time.Since(start),
			nextSource: candidate,
			nextOutput: full,
		}
	}
}

func (m model) formatError(errorStyle lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	if m.options.NoColor {
		s.WriteString(entry.output)
	} else {
		s.WriteString(errorStyle.Render(entry.output))
	}
}

// Update handles all updates to the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false

		if !msg.isError {
			m.source = msg.nextSource
			m.output = msg.nextOutput
		}

		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false
					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.source, m.output, m.options.Debug)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multilineBuffer) {
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false
					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.source, m.output, m.options.Debug)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating = true
			m.currentInput = input
			m.textInput.SetValue("")
			return m, evalCmd(input, m.source, m.output, m.options.Debug)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// View renders the current UI.
func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Luma REPL "))
	s.WriteString("\n")
	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Feel free to type in commands\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightLine(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ParseError:
				m.formatError(parseErrorStyle, &entry, &s)
			case RuntimeError:
				m.formatError(runtimeErrorStyle, &entry, &s)
			default:
				m.formatError(errorStyle, &entry, &s)
			}
		} else if m.options.NoColor {
			s.WriteString(entry.output)
		} else {
			s.WriteString(resultStyle.Render(entry.output))
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}
		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		for i, line := range strings.Split(m.currentInput, "\n") {
			if i > 0 {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightLine(line))
			s.WriteString("\n")
		}
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline input:\n"))
		for _, line := range strings.Split(m.multilineBuffer, "\n") {
			s.WriteString(m.highlightLine(line))
			s.WriteString("\n")
		}
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to evaluate or continue typing"
	} else {
		helpText += " | Multiline input supported for unbalanced brackets"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("Parse Errors:\n")
	for i, msg := range errors {
		s.WriteString(fmt.Sprintf("  %d. %s\n", i+1, msg))
	}
	return s.String()
}

func formatCompileError(err error) string {
	var s strings.Builder
	s.WriteString("Compile Error:\n  ")
	s.WriteString(err.Error())
	s.WriteString("\n")
	return s.String()
}

func formatRuntimeError(msg string) string {
	var s strings.Builder
	s.WriteString("Runtime Error:\n  ")
	s.WriteString(msg)
	s.WriteString("\n")
	return s.String()
}

// noSpaceBefore holds token types that should hug the token before
// them rather than be separated by a rendering space: closing
// delimiters, the call/index/field punctuation, and commas.
var noSpaceBefore = map[token.Type]bool{
	token.Lparen:    true,
	token.Rparen:    true,
	token.Lbracket:  true,
	token.Rbracket:  true,
	token.Comma:     true,
	token.Dot:       true,
	token.Colon:     true,
	token.Semicolon: true,
}

// noSpaceAfter holds token types that should hug whatever follows
// them: the sigils and the dot/field-access punctuation.
var noSpaceAfter = map[token.Type]bool{
	token.At:       true,
	token.Hash:     true,
	token.Dot:      true,
	token.Lparen:   true,
	token.Lbracket: true,
}

// highlightLine tokenizes a single source line and renders it with
// Luma's keyword/operator/sigil/delimiter/literal styling.
func (m model) highlightLine(line string) string {
	l := lexer.New(line)
	var s strings.Builder
	var prev token.Type = token.Illegal

	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		if s.Len() > 0 && !noSpaceBefore[tok.Type] && !noSpaceAfter[prev] {
			s.WriteString(" ")
		}
		prev = tok.Type

		switch tok.Type {
		case token.Class, token.Def, token.True, token.False, token.If, token.Else,
			token.While, token.For, token.Return, token.Nil, token.Import:
			s.WriteString(m.applyStyle(keywordStyle, tok.Literal))
		case token.Ident:
			s.WriteString(m.applyStyle(identifierStyle, tok.Literal))
		case token.Int, token.Float:
			s.WriteString(m.applyStyle(literalStyle, tok.Literal))
		case token.String:
			s.WriteString(m.applyStyle(stringStyle, `"`+tok.Literal+`"`))
		case token.At, token.Hash:
			s.WriteString(m.applyStyle(sigilStyle, tok.Literal))
		case token.Equal, token.Plus, token.Minus, token.Bang, token.Asterisk, token.Slash,
			token.Lt, token.Lte, token.Gt, token.Gte, token.EqualEqual, token.BangEqual,
			token.And, token.Or:
			s.WriteString(m.applyStyle(operatorStyle, tok.Literal))
		case token.Comma, token.Colon, token.Semicolon, token.Lparen, token.Rparen,
			token.Lbrace, token.Rbrace, token.Lbracket, token.Rbracket, token.Dot:
			s.WriteString(m.applyStyle(delimiterStyle, tok.Literal))
		default:
			s.WriteString(tok.Literal)
		}
	}

	return s.String()
}
