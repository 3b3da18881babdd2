package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/csvio"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

type options struct {
	example     bool
	subjects    string
	preferences string
	constraints string
	days        string
	hours       string
	maxPerDay   int
	penalty     float64
	timeout     time.Duration
	solver      string
	out         string
	comma       string
	logLevel    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("timetable-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.example, "example", false, "solve the built-in five day example")
	fs.StringVar(&opts.subjects, "subjects", "", "CSV with subject,hours rows")
	fs.StringVar(&opts.preferences, "preferences", "", "optional CSV with day,hour,subject,weight rows")
	fs.StringVar(&opts.constraints, "constraints", "", "optional CSV with day,hour,subject,flag rows (1 pins, anything else forbids)")
	fs.StringVar(&opts.days, "days", "mon,tue,wed,thu,fri", "comma separated day labels in order")
	fs.StringVar(&opts.hours, "hours", "", "comma separated hour labels in order")
	fs.IntVar(&opts.maxPerDay, "max-per-day", 2, "maximum hours of one subject per day")
	fs.Float64Var(&opts.penalty, "penalty", 0, "objective cost of each subject-day above the minimum (0 keeps the default)")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "solver time limit")
	fs.StringVar(&opts.solver, "solver", service.SolverPB, "mip backend: pb, or glpk when built with -tags glpk")
	fs.StringVar(&opts.out, "out", "", "write the solved slots as CSV to this path")
	fs.StringVar(&opts.comma, "comma", ",", "CSV field separator")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if !opts.example && (opts.subjects == "" || opts.hours == "") {
		return opts, errors.New("either -example or both -subjects and -hours are required")
	}
	if len([]rune(opts.comma)) != 1 {
		return opts, fmt.Errorf("-comma must be a single character, got %q", opts.comma)
	}
	return opts, nil
}

func splitLabels(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildRequest(opts options, codec csvio.Codec) (dto.GenerateTimetableRequest, error) {
	if opts.example {
		return service.ExampleRequest(), nil
	}
	subjects, err := csvio.OpenAndRead(opts.subjects, codec.ReadSubjects)
	if err != nil {
		return dto.GenerateTimetableRequest{}, err
	}
	prefs, err := csvio.OpenAndRead(opts.preferences, codec.ReadPreferences)
	if err != nil {
		return dto.GenerateTimetableRequest{}, err
	}
	constraints, err := csvio.OpenAndRead(opts.constraints, codec.ReadConstraints)
	if err != nil {
		return dto.GenerateTimetableRequest{}, err
	}

	req := dto.GenerateTimetableRequest{
		TermID:          "cli",
		ClassID:         "cli",
		Days:            splitLabels(opts.days),
		Hours:           splitLabels(opts.hours),
		HoursPerSubject: make(map[string]int, len(subjects)),
		MaxHoursPerDay:  opts.maxPerDay,
	}
	for _, s := range subjects {
		req.HoursPerSubject[s.Subject] = s.Hours
	}
	for _, p := range prefs {
		req.Preferences = append(req.Preferences, dto.PreferenceEntry{Day: p.Day, Hour: p.Hour, Subject: p.Subject, Weight: p.Weight})
	}
	for _, c := range constraints {
		req.Constraints = append(req.Constraints, dto.ConstraintEntry{Day: c.Day, Hour: c.Hour, Subject: c.Subject, Flag: c.Flag})
	}
	return req, nil
}

func printGrid(w io.Writer, result *dto.GenerateTimetableResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Hour\t%s\n", strings.Join(result.Days, "\t"))
	for h, hour := range result.Hours {
		cells := make([]string, len(result.Days))
		for d := range result.Days {
			cells[d] = result.Grid[h][d]
			if cells[d] == "" {
				cells[d] = "-"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", hour, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	st := result.Stats
	_, err := fmt.Fprintf(w, "\nstatus=%s objective=%.3f extra_days=%d variables=%d constraints=%d solve=%dms\n",
		st.Status, st.Objective, st.ExtraDays, st.Variables, st.Constraints, st.DurationMillis)
	return err
}

func writeSlots(path string, codec csvio.Codec, slots []dto.TimetableSlotProposal) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	records := make([]csvio.SlotRecord, 0, len(slots))
	for _, s := range slots {
		records = append(records, csvio.SlotRecord{Day: s.Day, Hour: s.Hour, Subject: s.Subject})
	}
	if err := codec.WriteSlots(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logr := logger.NewCLI(opts.logLevel)
	defer logr.Sync() //nolint:errcheck

	codec := csvio.New([]rune(opts.comma)[0])
	req, err := buildRequest(opts, codec)
	if err != nil {
		return err
	}

	solver, err := service.NewSolver(service.SolverConfig{Name: opts.solver, TimeLimit: opts.timeout}, logr)
	if err != nil {
		return err
	}
	svc := service.NewTimetableService(nil, nil, nil, nil, nil, nil, logr, service.TimetableConfig{
		CompactnessPenalty: opts.penalty,
		Solver:             solver,
	})
	result, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}
	logr.Debug("timetable solved", zap.String("proposal_id", result.ProposalID), zap.Int("slots", len(result.Slots)))

	if err := printGrid(stdout, result); err != nil {
		return err
	}
	if opts.out != "" {
		return writeSlots(opts.out, codec, result.Slots)
	}
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if appErr := appErrors.FromError(err); appErr.Code != appErrors.ErrInternal.Code {
			fmt.Fprintf(os.Stderr, "%s: %s\n", appErr.Code, appErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
