package main

import (
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gridflow/gridflow/internal/config"
	"github.com/gridflow/gridflow/internal/engine"
	"github.com/gridflow/gridflow/internal/logger"
	"github.com/gridflow/gridflow/internal/scheduler"
	"github.com/gridflow/gridflow/internal/tui"
)

type watchFlags struct {
	metricsAddr string
	interval    time.Duration
}

func newWatchCmd(root *rootFlags) *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch <graph.yaml>",
		Short: "Watch a graph document and re-evaluate on change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(args[0], root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&flags.interval, "interval", time.Second, "Document poll interval")

	return cmd
}

func runWatch(path string, root *rootFlags, flags *watchFlags) error {
	log, err := newLogger(root)
	if err != nil {
		return err
	}

	doc, err := config.ParseDocument(path)
	if err != nil {
		return err
	}

	if flags.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if serveErr := http.ListenAndServe(flags.metricsAddr, mux); serveErr != nil {
				log.Error(serveErr, "metrics server stopped")
			}
		}()
	}

	eng := engine.Start(engine.Options{Log: log, ProgressEvery: 64})
	defer eng.Close()
	session := scheduler.NewSession(eng, log)
	defer session.Close()

	nodes, edges := doc.Graph()
	if err := session.ApplyEdit(nodes, edges, doc.BindingOptions()); err != nil {
		return err
	}

	program := tea.NewProgram(tui.NewModel(doc.Name))

	// Forward session updates and reload the document on change until the
	// TUI exits.
	done := make(chan struct{})
	go forwardUpdates(program, session, done)
	go pollDocument(session, path, flags.interval, log, done)

	_, err = program.Run()
	close(done)
	return err
}

func forwardUpdates(program *tea.Program, session *scheduler.Session, done <-chan struct{}) {
	announced := false
	for {
		select {
		case <-done:
			return
		case update := <-session.Updates():
			if !announced {
				if info := session.EngineInfo(); info != nil {
					program.Send(tui.EngineReadyMsg{Info: *info})
					announced = true
				}
			}
			program.Send(tui.UpdateMsg{Update: update})
		}
	}
}

func pollDocument(session *scheduler.Session, path string, interval time.Duration, log *logger.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			doc, err := config.ParseDocument(path)
			if err != nil {
				// A half-saved file parses on the next tick.
				continue
			}
			nodes, edges := doc.Graph()
			if err := session.ApplyEdit(nodes, edges, doc.BindingOptions()); err != nil {
				log.Error(err, "edit rejected")
			}
		}
	}
}
