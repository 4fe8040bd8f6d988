// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/form"
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/httperrors"
	"formplay/cli/internal/session"
	"formplay/cli/internal/terminal"
)

// errQuit ends the prompt loop without submitting.
var errQuit = errors.New("fill interrupted")

const fillHelp = `Commands:
  :submit        submit the form
  :quit          stop here; answers stay saved on the server
  :list          show all questions and answers
  :review        show the answers as the service formats them
  :edit IX       answer the question at IX again
  :add IX        add a repetition to the repeat at IX
  :del IX        delete the repetition at IX
  :lang CODE     switch the form language
  :next / :prev  move between screens (--one-question)
  :show IX       show the questions on the screen at IX
  :xpath EXPR    evaluate an XPath expression against the form
Answer "-" clears a question, an empty answer keeps it.`

// fillUI asks the questions of one session on the terminal.
type fillUI struct {
	ctx     context.Context
	s       *session.Session
	host    string
	oneQ    bool
	spinner *loadingIndicator
	lines   <-chan string

	// asked holds the indices already prompted on the current screen.
	asked map[string]bool

	mu  sync.Mutex
	nav session.NavResult
}

func newFillUI(ctx context.Context, baseURL string, oneQ bool) *fillUI {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &fillUI{
		ctx:     ctx,
		host:    httperrors.ExtractHostFromURL(baseURL),
		oneQ:    oneQ,
		spinner: newLoadingIndicator(interactive(), "Talking to the form service..."),
		lines:   lines,
		asked:   make(map[string]bool),
	}
}

func (u *fillUI) callbacks() session.Callbacks {
	return session.Callbacks{
		OnLoading:         u.spinner.Start,
		OnLoadingComplete: u.spinner.Stop,
		OnError: func(info session.ErrorInfo) {
			u.spinner.Stop()
			httperrors.Present(&apperr.E{Kind: info.Kind, Message: info.HumanReadableMessage, HTML: info.IsHTML}, u.host)
		},
	}
}

// run loads the form and prompts until it is submitted or the user quits.
func (u *fillUI) run(lang string) error {
	u.s.Load(lang)
	snap, err := u.settle()
	if err != nil {
		return err
	}
	if snap.State != session.Ready {
		return errors.New("the form could not be opened")
	}
	pterm.DefaultSection.Println(snap.Title)
	if len(snap.Langs) > 1 {
		pterm.Info.Printfln("Available languages: %s (switch with :lang)", strings.Join(snap.Langs, ", "))
	}
	pterm.Println("Type :help for commands.")
	pterm.Println()

	for {
		snap, err := u.settle()
		if err != nil {
			return err
		}
		if snap.State == session.Submitted {
			pterm.Success.Println("Form submitted.")
			return nil
		}

		if n := u.next(snap.Tree); n != nil {
			if err := u.ask(n); err != nil {
				return err
			}
			continue
		}

		if u.oneQ && !u.atLast() {
			u.navigate(u.s.NextQuestion)
			continue
		}
		line, err := u.readLine("All questions answered. Type :submit to submit the form: ")
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if err := u.command(line); err != nil {
			return err
		}
	}
}

// settle waits for outstanding requests and returns the resulting state.
func (u *fillUI) settle() (session.Snapshot, error) {
	if err := u.s.WaitIdle(u.ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return session.Snapshot{}, errQuit
		}
		return session.Snapshot{}, err
	}
	u.spinner.Stop()
	return u.s.Snapshot()
}

// next returns the first question not yet asked. A repeat juncture comes
// after its repetitions so the user is offered another one at the end.
func (u *fillUI) next(t *form.Tree) *form.Node {
	if t == nil {
		return nil
	}
	return u.nextIn(t.Nodes)
}

func (u *fillUI) nextIn(nodes []*form.Node) *form.Node {
	for _, n := range nodes {
		if n.IsQuestion() {
			if !u.asked[n.Ix] {
				return n
			}
			continue
		}
		if c := u.nextIn(n.Children); c != nil {
			return c
		}
		if n.Type == form.TypeRepeatJuncture && !u.asked[n.Ix] {
			return n
		}
	}
	return nil
}

func (u *fillUI) ask(n *form.Node) error {
	u.asked[n.Ix] = true
	switch {
	case n.IsInfo():
		pterm.Info.Println(n.Caption)
		return nil
	case n.Type == form.TypeRepeatJuncture:
		return u.offerRepeat(n)
	}

	printQuestion(n)
	prompt := "> "
	if n.IsMedia() {
		prompt = "file path> "
	}
	line, err := u.readLine(prompt)
	if err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(line, ":"):
		delete(u.asked, n.Ix)
		return u.command(line)
	case line == "":
		return nil
	case line == "-":
		u.s.ClearAnswer(n.Ix)
	case n.IsMedia():
		m, err := formplayer.ReadMedia(line)
		if err != nil {
			pterm.Error.Println(err.Error())
			delete(u.asked, n.Ix)
			return nil
		}
		u.s.AttachMedia(n.Ix, m)
	default:
		v, err := form.CoerceAnswer(n, line)
		if err != nil {
			pterm.Error.Println(err.Error())
			delete(u.asked, n.Ix)
			return nil
		}
		u.s.AnswerQuestion(n.Ix, v)
	}
	return u.checkAnswer(n.Ix)
}

// checkAnswer re-queues the question when the answer was not accepted.
func (u *fillUI) checkAnswer(ix string) error {
	snap, err := u.settle()
	if err != nil {
		return err
	}
	n := snap.Tree.Find(ix)
	if n == nil || !n.ShowsError() {
		return nil
	}
	pterm.Error.Println(errorText(n))
	delete(u.asked, ix)
	return nil
}

func (u *fillUI) offerRepeat(n *form.Node) error {
	caption := n.Caption
	if caption == "" {
		caption = "entry"
	}
	prompt := fmt.Sprintf("Add another %s? [y/N] ", caption)
	line, err := u.readLine(prompt)
	if err != nil {
		return err
	}
	if strings.HasPrefix(line, ":") {
		delete(u.asked, n.Ix)
		return u.command(line)
	}
	if interactive() {
		terminal.ClearPreviousLines(len(prompt) + len(line))
	}
	if strings.EqualFold(line, "y") || strings.EqualFold(line, "yes") {
		pterm.FgGray.Printfln("+ %s", caption)
		u.s.NewRepeat(n.Ix)
		delete(u.asked, n.Ix)
	}
	return nil
}

func (u *fillUI) command(line string) error {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "submit":
		u.s.SubmitForm()
	case "quit", "q":
		return errQuit
	case "help", "h":
		pterm.Println(fillHelp)
	case "list":
		snap, err := u.settle()
		if err != nil {
			return err
		}
		printTree(snap.Tree)
	case "review":
		u.s.FormattedQuestions(func(text string) {
			pterm.DefaultBox.WithTitle("Answers").Println(strings.TrimSpace(text))
		})
	case "edit":
		if arg == "" {
			pterm.Warning.Println("Usage: :edit IX")
			break
		}
		delete(u.asked, arg)
	case "add":
		if arg == "" {
			pterm.Warning.Println("Usage: :add IX")
			break
		}
		u.s.NewRepeat(arg)
	case "del":
		if arg == "" {
			pterm.Warning.Println("Usage: :del IX")
			break
		}
		u.s.DeleteRepeat(arg)
	case "lang":
		if arg == "" {
			pterm.Warning.Println("Usage: :lang CODE")
			break
		}
		u.s.ChangeLang(arg)
	case "xpath":
		if arg == "" {
			pterm.Warning.Println("Usage: :xpath EXPR")
			break
		}
		u.s.EvaluateXPath(arg, func(r session.XPathResult) {
			if r.Status == formplayer.StatusError {
				pterm.Error.Println(r.Output)
				return
			}
			pterm.Println(r.Output)
		})
	case "show":
		if arg == "" {
			pterm.Warning.Println("Usage: :show IX")
			break
		}
		u.s.QuestionsForIndex(arg, func(t *form.Tree) {
			if t == nil || len(t.Nodes) == 0 {
				pterm.Warning.Printfln("No questions at %s", arg)
				return
			}
			printTree(t)
		})
	case "next":
		u.navigate(u.s.NextQuestion)
	case "prev":
		u.navigate(u.s.PrevQuestion)
	default:
		pterm.Warning.Printfln("Unknown command %q. Type :help for commands.", line)
	}
	snap, err := u.settle()
	if err != nil {
		return err
	}
	// Questions the service rejected are asked again.
	snap.Tree.Walk(func(n *form.Node) bool {
		if n.IsQuestion() && n.ShowsError() {
			delete(u.asked, n.Ix)
		}
		return true
	})
	return nil
}

// navigate moves to another screen and forgets what was asked on this one.
func (u *fillUI) navigate(move func(func(session.NavResult))) {
	move(func(r session.NavResult) {
		u.mu.Lock()
		u.nav = r
		u.mu.Unlock()
	})
	u.asked = make(map[string]bool)
}

func (u *fillUI) atLast() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.nav.IsAtLastIndex
}

func (u *fillUI) readLine(prompt string) (string, error) {
	u.spinner.Stop()
	pterm.Print(prompt)
	select {
	case <-u.ctx.Done():
		pterm.Println()
		return "", errQuit
	case line, ok := <-u.lines:
		if !ok {
			return "", errQuit
		}
		return strings.TrimSpace(line), nil
	}
}

func printQuestion(n *form.Node) {
	label := n.Caption
	if n.Required {
		label += pterm.FgRed.Sprint(" *")
	}
	pterm.Printfln("%s %s", pterm.FgGray.Sprintf("[%s]", n.Ix), label)
	if n.Help != "" {
		pterm.FgGray.Println("    " + n.Help)
	}
	for i, c := range n.Choices {
		pterm.Printfln("    %d) %s", i+1, c)
	}
	if n.Answer != nil {
		pterm.FgGray.Printfln("    current: %v", n.Answer)
	}
}

func printTree(t *form.Tree) {
	if t == nil {
		return
	}
	var items []pterm.BulletListItem
	t.Walk(func(n *form.Node) bool {
		level := 0
		for p := n.Parent; p != nil; p = p.Parent {
			level++
		}
		text := fmt.Sprintf("[%s] %s", n.Ix, n.Caption)
		if n.IsQuestion() && !n.IsInfo() {
			text += ": " + answerText(n)
		}
		if n.ShowsError() {
			text += pterm.FgRed.Sprint("  (" + errorText(n) + ")")
		}
		items = append(items, pterm.BulletListItem{Level: level, Text: text})
		return true
	})
	_ = pterm.DefaultBulletList.WithItems(items).Render()
}

func answerText(n *form.Node) string {
	switch {
	case n.MediaPath != "":
		return n.MediaPath
	case n.Answer == nil:
		return "-"
	}
	return fmt.Sprint(n.Answer)
}

func errorText(n *form.Node) string {
	if n.ServerError != "" {
		return n.ServerError
	}
	return n.ValidationError
}
