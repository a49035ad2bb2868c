package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/feed/client"
	"github.com/mpapenbr/livetiming-relay/pkg/feed/frame"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/processing"
	"github.com/mpapenbr/livetiming-relay/pkg/reference"
)

var (
	targetCar     string
	referenceFile string
	scanPolicy    string
	chunkSize     int
	outputJSON    bool
)

func NewCheckFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed captureFile",
		Short: "replays a recorded feed and shows the resulting race state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkFeed(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
	cmd.Flags().StringVar(&targetCar, "target-car", "", "car to show driver info for")
	cmd.Flags().StringVar(&referenceFile, "reference-file", "",
		"yaml file with driver reference data")
	cmd.Flags().StringVar(&scanPolicy, "scan-policy", "arrival",
		"how to pick the next message (priority, arrival)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0,
		"simulate network reads of this size (0 reads the whole file)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print the snapshot as json")
	return cmd
}

func checkFeed(ctx context.Context, w io.Writer, file string) error {
	logger := log.GetFromContext(ctx).Named("check")
	ref := reference.Empty()
	if referenceFile != "" {
		var err error
		if ref, err = reference.LoadFile(referenceFile); err != nil {
			return err
		}
	}
	policy, err := frame.ParsePolicy(scanPolicy)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	snap, err := replay(ctx, f, replayOptions{
		targetCar: targetCar,
		chunkSize: chunkSize,
		ref:       ref,
		frameOpts: []frame.Option{frame.WithPolicy(policy)},
		logger:    logger,
	})
	if err != nil {
		return err
	}
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	renderLeaderboard(w, snap)
	if snap.DriverInfo != nil {
		renderDriverInfo(w, snap.DriverInfo)
	}
	return nil
}

type replayOptions struct {
	targetCar string
	chunkSize int
	ref       *model.ReferenceData
	frameOpts []frame.Option
	logger    *log.Logger
}

// replay feeds r through the decoding pipeline and returns the final snapshot.
func replay(ctx context.Context, r io.Reader, o replayOptions) (*model.Snapshot, error) {
	if o.logger == nil {
		o.logger = log.Default().Named("check")
	}
	if o.ref == nil {
		o.ref = reference.Empty()
	}
	proc := processing.NewProcessor(
		processing.WithReferenceData(o.ref),
		processing.WithLogger(o.logger))
	c, err := client.NewClient("replay", proc,
		client.WithFrameOptions(o.frameOpts...),
		client.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	if o.chunkSize > 0 {
		r = &chunkReader{r: r, size: o.chunkSize}
	}
	if err := c.Consume(ctx, r); err != nil && !errors.Is(err, client.ErrConnectionClosed) {
		return nil, err
	}
	return proc.Snapshot(o.targetCar), nil
}

// chunkReader limits each Read to size bytes.
type chunkReader struct {
	r    io.Reader
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > c.size {
		p = p[:c.size]
	}
	return c.r.Read(p)
}

func renderLeaderboard(w io.Writer, snap *model.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("Leaderboard (%d cars)", len(snap.Rows)))
	t.AppendHeader(table.Row{
		"Pos", "Car", "Driver", "Team", "Leader", "Interval", "Laps", "Last Lap", "Speed",
	})
	for i := range snap.Rows {
		row := &snap.Rows[i]
		t.AppendRow(table.Row{
			row.Rank, row.CarNum, row.DisplayName, row.Team,
			row.LeaderSplit, row.IntervalSplit, row.LapsCompleted, row.LastLapTime, row.Speed,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	t.Render()
}

func renderDriverInfo(w io.Writer, d *model.DriverInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Driver info car " + d.CarNum)
	t.AppendRows([]table.Row{
		{"Position", d.Ordinal},
		{"Driver", d.DisplayName},
		{"Lap", d.LapNumber},
		{"Last lap", d.LastLapTime},
		{"Last lap delta", fmt.Sprintf("%s (%s)", d.LastLapDelta, d.LastLapDeltaSign)},
		{"Speed", d.Speed},
		{"Ahead", fmt.Sprintf("%s %s (%s)", d.AheadLastName, d.AheadSplit, d.AheadSplitTrend)},
		{"Behind", d.BehindLastName},
	})
	t.Render()
}
