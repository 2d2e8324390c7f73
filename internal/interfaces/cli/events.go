package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/dtiscope/internal/domain/event"
	"github.com/turtacn/dtiscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/dtiscope/pkg/errors"
)

// EventLine is one consumed event as printed by `dtiscope events`.
type EventLine struct {
	Envelope *kafka.EventEnvelope `json:"envelope" yaml:"envelope"`
	Summary  string               `json:"summary" yaml:"summary"`
}

func (l EventLine) String() string {
	return fmt.Sprintf("%s %s %s",
		color.HiBlackString(l.Envelope.Timestamp.Format("15:04:05.000")),
		color.CyanString("%-20s", l.Envelope.EventType),
		l.Summary)
}

// SummarizeEvent renders a one-line description of a known event type.
func SummarizeEvent(env *kafka.EventEnvelope) string {
	switch env.EventType {
	case event.TypeSelectionCommitted:
		var ev event.SelectionCommitted
		if err := env.DecodePayload(&ev); err != nil {
			return err.Error()
		}
		if ev.PayloadLength == 0 {
			return fmt.Sprintf("session=%s %s cleared (v%d)", ev.SessionID, ev.Kind, ev.Version)
		}
		return fmt.Sprintf("session=%s %s=%q %s len=%d (v%d)",
			ev.SessionID, ev.Kind, ev.Name, parenthesise(ev.ID), ev.PayloadLength, ev.Version)
	case event.TypeAnalysisCompleted, event.TypeAnalysisFailed:
		var ev event.AnalysisFinished
		if err := env.DecodePayload(&ev); err != nil {
			return err.Error()
		}
		outcome := ev.Result
		if ev.Error != "" {
			outcome = "error: " + ev.Error
		}
		if ev.Discarded {
			outcome += " [discarded]"
		}
		return fmt.Sprintf("session=%s %s + %s via %s in %dms: %s",
			ev.SessionID, ev.DrugName, ev.ProteinName, ev.Scorer, ev.DurationMs, outcome)
	default:
		return string(env.Payload)
	}
}

func newEventsCmd() *cobra.Command {
	var (
		group         string
		fromBeginning bool
		types         []string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail selection and analysis events from Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc := cliCtx.Config.Kafka
			if len(kc.Brokers) == 0 {
				return errors.New(errors.ErrCodeFeatureDisabled, "kafka.brokers is not configured")
			}
			consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:       kc.Brokers,
				Topic:         kc.Topic,
				GroupID:       group,
				FromBeginning: fromBeginning,
				EventTypes:    types,
			}, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return consumer.Run(ctx, func(_ context.Context, env *kafka.EventEnvelope) error {
				return PrintResult(cmd, EventLine{Envelope: env, Summary: SummarizeEvent(env)})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&group, "group", "", "consumer group (commits offsets when set)")
	f.BoolVar(&fromBeginning, "from-beginning", false, "read the topic from the first offset")
	f.StringSliceVar(&types, "type", nil, "only show these event types (repeatable)")
	return cmd
}

//Personal.AI order the ending
