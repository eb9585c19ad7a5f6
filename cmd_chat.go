package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmartLoan360X/server/internal/agent/graph"
	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
	"github.com/SmartLoan360X/server/internal/events"
	"github.com/SmartLoan360X/server/internal/upload"
)

const chatHelp = `Commands:
  /upload <path>    submit a PAN or Aadhar image for KYC
  /persona <name>   switch persona
  /personas         list personas
  /state            show the session record
  /history          show the transcript
  /events           list domain events raised in this run
  /new              drop this session and start another
  /quit             leave`

func newChatCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			rec := &events.Recorder{}
			a, err := bootstrap(cmd.Context(), cfg, rec)
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(cmd.Context(), a.orchestrator, a.uploads, rec, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, o *graph.Orchestrator, store *upload.Store, rec *events.Recorder, in io.Reader, out io.Writer) error {
	res, err := o.Start(ctx)
	if err != nil {
		return err
	}
	sessionID := res.SessionID
	fmt.Fprintf(out, "Session %s\n%s\n\n", sessionID, chatHelp)
	printTurn(out, res)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
		case "/personas":
			fmt.Fprintln(out, strings.Join(o.Personas(), "\n"))
		case "/persona":
			st, err := o.SetPersona(ctx, sessionID, arg)
			if err != nil {
				fmt.Fprintln(out, "!", errx.MessageOf(err))
				continue
			}
			fmt.Fprintf(out, "Persona set to %s\n", st.Persona)
		case "/state":
			st, err := o.Session(ctx, sessionID)
			if err != nil {
				fmt.Fprintln(out, "!", errx.MessageOf(err))
				continue
			}
			fmt.Fprintf(out, "persona=%s kyc_verified=%t pending=%q task_is_done=%t\n",
				st.Persona, st.Customer.KYCVerified, st.Pending, st.TaskDone)
		case "/history":
			st, err := o.Session(ctx, sessionID)
			if err != nil {
				fmt.Fprintln(out, "!", errx.MessageOf(err))
				continue
			}
			fmt.Fprintln(out, st.Transcript())
		case "/events":
			if rec == nil {
				fmt.Fprintln(out, "! events are published to NATS")
				continue
			}
			for _, ev := range rec.Events() {
				fmt.Fprintf(out, "%s %s\n", ev.OccurredAt.Format(time.TimeOnly), ev.Subject)
			}
		case "/new":
			if err := o.EndSession(ctx, sessionID); err != nil {
				fmt.Fprintln(out, "!", errx.MessageOf(err))
				continue
			}
			res, err := o.Start(ctx)
			if err != nil {
				return err
			}
			sessionID = res.SessionID
			fmt.Fprintf(out, "Session %s\n", sessionID)
			printTurn(out, res)
		case "/upload":
			res, err := uploadFile(ctx, o, store, sessionID, arg)
			if err != nil {
				fmt.Fprintln(out, "!", errx.MessageOf(err))
				continue
			}
			printTurn(out, res)
		default:
			res, err := o.Chat(ctx, sessionID, line)
			if err != nil {
				fmt.Fprintln(out, "!", errx.MessageOf(err))
				continue
			}
			printTurn(out, res)
		}
	}
}

func uploadFile(ctx context.Context, o *graph.Orchestrator, store *upload.Store, sessionID, path string) (*model.TurnResult, error) {
	if path == "" {
		// an empty upload still reaches KYC, which reports the missing file
		return o.Upload(ctx, sessionID, "")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.Validationf("cannot open %s", filepath.Base(path))
	}
	defer f.Close()

	stored, err := store.Save(filepath.Base(path), f)
	if err != nil {
		return nil, err
	}
	res, err := o.Upload(ctx, sessionID, stored)
	if err != nil {
		_ = store.Remove(stored)
		return nil, err
	}
	return res, nil
}

func printTurn(out io.Writer, res *model.TurnResult) {
	for _, reply := range res.Replies {
		if res.Agent == "" {
			fmt.Fprintf(out, "%s\n\n", reply)
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n\n", res.Agent, reply)
	}
	if res.TaskDone {
		fmt.Fprintln(out, "(task complete)")
	}
}
