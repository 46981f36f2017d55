package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrQuit = errors.New("quit chat")

const helpText = "commands: /new starts a fresh session, /history replays the conversation, /copy prints the last reply verbatim, /quit exits"

type REPL struct {
	in       *bufio.Reader
	renderer *Renderer
	conv     *Conversation
	name     string
}

func NewREPL(in io.Reader, renderer *Renderer, conv *Conversation, userName string) *REPL {
	if in == nil {
		in = strings.NewReader("")
	}
	if renderer == nil {
		renderer = NewRenderer(io.Discard, defaultPrompt)
	}
	return &REPL{
		in:       bufio.NewReader(in),
		renderer: renderer,
		conv:     conv,
		name:     userName,
	}
}

// Run greets the user, opens a session and reads turns until EOF, /quit
// or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.banner(); err != nil {
		return err
	}
	if err := r.newSession(ctx); err != nil {
		if writeErr := r.renderer.PrintLine(err.Error()); writeErr != nil {
			return writeErr
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := r.renderer.ShowPrompt(); err != nil {
			return err
		}
		line, err := r.in.ReadString('\n')
		r.renderer.HidePrompt()
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}

		dispatchErr := r.dispatch(ctx, trimmed)
		switch {
		case dispatchErr == nil:
		case errors.Is(dispatchErr, ErrQuit):
			return nil
		default:
			if writeErr := r.renderer.PrintLine(dispatchErr.Error()); writeErr != nil {
				return writeErr
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (r *REPL) banner() error {
	name := strings.TrimSpace(r.name)
	if name == "" {
		name = "there"
	}
	if err := r.renderer.PrintLine(fmt.Sprintf("Welcome, %s!", name)); err != nil {
		return err
	}
	return r.renderer.PrintLine(helpText)
}

func (r *REPL) dispatch(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		return r.send(ctx, line)
	}

	command := line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		command = line[:i]
	}

	switch strings.TrimPrefix(command, "/") {
	case "new":
		return r.newSession(ctx)
	case "history":
		for _, m := range r.conv.History() {
			if err := r.renderer.PrintMessage(m); err != nil {
				return err
			}
		}
		return nil
	case "copy":
		reply, ok := r.conv.LastReply()
		if !ok {
			return errors.New("nothing to copy yet")
		}
		return r.renderer.PrintLine(reply)
	case "help":
		return r.renderer.PrintLine(helpText)
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unsupported command %q", command)
	}
}

func (r *REPL) newSession(ctx context.Context) error {
	id, err := r.conv.NewSession(ctx)
	if err != nil {
		return err
	}
	return r.renderer.PrintLine("Active session: " + id)
}

func (r *REPL) send(ctx context.Context, text string) error {
	if r.conv.Phase() == PhaseNoSession {
		return errors.New(msgNoSession)
	}
	if err := r.renderer.PrintLine("Thinking..."); err != nil {
		return err
	}
	msg, err := r.conv.Send(ctx, text)
	if errors.Is(err, ErrTurnInFlight) || errors.Is(err, ErrEmptyInput) {
		return err
	}
	return r.renderer.PrintMessage(msg)
}
