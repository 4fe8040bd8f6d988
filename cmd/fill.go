// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/session"
	"formplay/cli/internal/store"
	"formplay/cli/internal/terminal"
)

var fillOpts struct {
	form         string
	formURL      string
	formFile     string
	instanceFile string
	lang         string
	restoreAs    string
	sessionID    string
	sessionData  map[string]string
	resume       bool
	sql          bool
	oneQuestion  bool
}

// fillCmd opens a form session and walks the user through it.
var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill in a form interactively",
	Long: `The fill command opens a form on the configured form service and asks each
question in turn. Answers are saved on the server as you go, so an interrupted
fill can be continued later with --resume (or --session with an id listed by
'formplay sessions').

While filling, lines starting with ':' are commands; type :help to list them.`,
	Example: `  formplay fill --form household-survey
  formplay fill --form household-survey --resume
  formplay fill --form-url https://forms.example.org/intake.xml --lang fr
  formplay fill --form-file ./intake.xml --session-data case_id=42`,
	RunE: runFill,
}

func init() {
	f := fillCmd.Flags()
	f.StringVar(&fillOpts.form, "form", "", "Name of the form to open")
	f.StringVar(&fillOpts.formURL, "form-url", "", "URL of the form definition")
	f.StringVar(&fillOpts.formFile, "form-file", "", "Local form definition to upload")
	f.StringVar(&fillOpts.instanceFile, "instance", "", "Prefill answers from an instance XML file")
	f.StringVar(&fillOpts.lang, "lang", "", "Form language")
	f.StringVar(&fillOpts.restoreAs, "restore-as", "", "Fill the form on behalf of another user")
	f.StringVar(&fillOpts.sessionID, "session", "", "Resume the session with this id")
	f.StringToStringVar(&fillOpts.sessionData, "session-data", nil, "Session data passed to the form (key=value)")
	f.BoolVar(&fillOpts.resume, "resume", false, "Resume the last unfinished session of this form")
	f.BoolVar(&fillOpts.sql, "sql", false, "Ask the service to use its SQL backend")
	f.BoolVar(&fillOpts.oneQuestion, "one-question", false, "Show one question per screen")
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	spec, err := fillFormSpec()
	if err != nil {
		return err
	}
	opts := session.Options{
		SessionID:            fillOpts.sessionID,
		Domain:               a.cfg.Domain,
		Username:             a.cfg.Username,
		RestoreAs:            fillOpts.restoreAs,
		Form:                 spec,
		SessionData:          toAnyMap(fillOpts.sessionData),
		UsesSQLBackend:       fillOpts.sql,
		OneQuestionPerScreen: fillOpts.oneQuestion,
		Debugger:             a.cfg.Debugger,
		Lang:                 fillOpts.lang,
	}
	if fillOpts.instanceFile != "" {
		b, err := os.ReadFile(fillOpts.instanceFile)
		if err != nil {
			return fmt.Errorf("read instance: %w", err)
		}
		opts.InstanceContent = string(b)
	}
	if opts.Zone, err = formplayer.LoadZone(a.cfg.Timezone); err != nil {
		return apperr.Wrap(apperr.Config, "invalid timezone "+a.cfg.Timezone, err)
	}

	client, m, err := a.client(ctx)
	if err != nil {
		return err
	}
	rep := a.reporter(ctx, m)
	defer func() { _ = rep.Close() }()

	deps := session.Deps{Transport: client, Reporter: rep, Log: a.log}
	st, err := store.Open(a.cfg.StorePath, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("session store unavailable")
		pterm.Warning.Println("Session history is unavailable; this fill cannot be resumed later.")
	} else {
		defer func() { _ = st.Close() }()
		deps.Store = st
	}

	if fillOpts.resume && opts.SessionID == "" {
		if st == nil {
			return errors.New("cannot resume: session history is unavailable")
		}
		id, err := lastSession(ctx, st, opts)
		if err != nil {
			return err
		}
		opts.SessionID = id
	}

	ui := newFillUI(ctx, a.cfg.BaseURL, fillOpts.oneQuestion)
	s, err := session.New(ctx, opts, deps, ui.callbacks())
	if err != nil {
		return err
	}
	defer s.Close()
	ui.s = s

	err = ui.run(fillOpts.lang)
	ui.spinner.Stop()
	if errors.Is(err, errQuit) {
		printResumeHint(opts)
		return nil
	}
	return err
}

func fillFormSpec() (session.FormSpec, error) {
	spec := session.FormSpec{Name: fillOpts.form, URL: fillOpts.formURL}
	if fillOpts.formFile != "" {
		b, err := os.ReadFile(fillOpts.formFile)
		if err != nil {
			return spec, fmt.Errorf("read form: %w", err)
		}
		spec.Content = string(b)
	}
	if fillOpts.sessionID != "" && spec == (session.FormSpec{}) {
		return spec, nil
	}
	return spec, spec.Validate()
}

// lastSession finds the stored session of this user and form.
func lastSession(ctx context.Context, st *store.Store, opts session.Options) (string, error) {
	form := opts.Form.Name
	if form == "" {
		form = opts.Form.URL
	}
	if form == "" {
		return "", errors.New("--resume needs --form or --form-url; use --session for uploaded forms")
	}
	rec, err := st.Get(ctx, store.Key(opts.Domain, opts.Username, form))
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("no unfinished session of %s to resume", form)
	}
	if err != nil {
		return "", err
	}
	if rec.State == session.Submitted.String() {
		return "", fmt.Errorf("the last session of %s was already submitted", form)
	}
	pterm.Info.Printfln("Resuming session from %s", rec.UpdatedAt.Local().Format("Jan 2 15:04"))
	return rec.SessionID, nil
}

func printResumeHint(opts session.Options) {
	pterm.Println()
	pterm.Println("Your answers are saved on the server.")
	switch {
	case opts.Form.Name != "":
		pterm.Printfln("   Continue with: formplay fill --form %s --resume", opts.Form.Name)
	case opts.Form.URL != "":
		pterm.Printfln("   Continue with: formplay fill --form-url %s --resume", opts.Form.URL)
	default:
		pterm.Println("   Run 'formplay sessions' to find this session again.")
	}
}

func toAnyMap(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[strings.TrimSpace(k)] = v
	}
	return out
}

func interactive() bool { return terminal.IsInteractive() }
