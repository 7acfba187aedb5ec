package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/notify"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

// engine is everything a session command wires together.
type engine struct {
	cfg         *config.Config
	pool        *postgres.Pool
	detector    capture.DetectorCloser
	broadcaster *events.Broadcaster
	frames      *handlers.FrameHub
	controller  *session.Controller
	server      *web.Server
}

// addEngineFlags registers the flags shared by run and schedule run.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("gallery", "", "Face database directory (default $GALLERY_DIR)")
	cmd.Flags().String("source", "", "Camera: device index, MJPEG URL or directory of frames (default $CAMERA_SOURCE)")
	cmd.Flags().String("cascade", "", "Detect faces locally with this Haar cascade XML (requires a -tags gocv build)")
	cmd.Flags().Float64("threshold", 0, "Acceptance threshold, 0 uses the configured value")
	cmd.Flags().StringSlice("notify", nil, "Mail the report to these contacts")
	cmd.Flags().Bool("serve", false, "Serve the live display and status API")
}

// newEngine loads the gallery, connects the optional database and builds the
// session controller. Configuration and persistence problems surface here,
// before any session starts.
func newEngine(ctx context.Context, cmd *cobra.Command) (*engine, error) {
	cfg := config.Load()
	e := &engine{cfg: cfg, broadcaster: events.NewBroadcaster()}

	galleryDir := cfg.Gallery.Dir
	if dir := mustGetString(cmd, "gallery"); dir != "" {
		galleryDir = dir
	}
	source := cfg.Camera.Source
	if s := mustGetString(cmd, "source"); s != "" {
		source = s
	}
	threshold := cfg.Engine.AcceptanceThreshold
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		threshold = t
	}

	g, err := gallery.Load(galleryDir)
	if err != nil {
		return nil, err
	}
	if g.Len() == 0 {
		return nil, apperror.Newf(apperror.KindConfiguration, "gallery %s has no people", galleryDir)
	}
	fmt.Printf("Loaded %d people from %s\n", g.Len(), galleryDir)

	sinks, err := e.buildSinks(ctx, mustGetStringSlice(cmd, "notify"))
	if err != nil {
		e.close()
		return nil, err
	}

	var store database.ReferenceStore
	if e.pool != nil {
		store = postgres.NewReferenceRepository(e.pool)
	}
	client := fingerprint.NewClient(cfg.Embedding.URL)
	faces := fingerprint.NewFaceService(client, store)
	if err := client.Health(ctx); err != nil {
		fmt.Printf("Warning: embedding server is not reachable: %v\n", err)
	}

	var detector capture.Detector = faces
	if path := mustGetString(cmd, "cascade"); path != "" {
		e.detector, err = capture.NewCascadeDetector(path)
		if err != nil {
			e.close()
			return nil, apperror.Wrap(apperror.KindConfiguration, err, "load face cascade")
		}
		detector = e.detector
	}

	var display capture.Display
	if mustGetBool(cmd, "serve") {
		e.frames = handlers.NewFrameHub()
		display = e.frames
	}

	aggregator := attendance.NewAggregator(faces, threshold)
	fmt.Printf("Acceptance threshold %.2f\n", aggregator.Threshold())

	coordinator := capture.NewCoordinator(
		capture.NewOpener(source),
		detector,
		aggregator,
		capture.Options{
			Display:           display,
			Events:            e.broadcaster,
			FrameInterval:     cfg.Engine.FrameInterval,
			CountdownInterval: cfg.Engine.CountdownInterval,
		},
	)

	e.controller = session.NewController(g.People, coordinator, session.Options{
		Events:            e.broadcaster,
		Sinks:             sinks,
		PollInterval:      cfg.Engine.SchedulePollInterval,
		CountdownInterval: cfg.Engine.CountdownInterval,
	})

	if e.frames != nil {
		e.server = web.NewServer(cfg, e.controller, e.broadcaster, e.frames)
	}
	return e, nil
}

// buildSinks returns the report sinks in delivery order: spreadsheet first so
// that later sinks can use the file.
func (e *engine) buildSinks(ctx context.Context, recipients []string) ([]report.Sink, error) {
	sinks := []report.Sink{&report.XLSXWriter{Dir: e.cfg.Report.Dir}}

	if e.cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Open(ctx, &e.cfg.Database)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindPersistence, err, "open database")
		}
		e.pool = pool
		sinks = append(sinks, &report.StoreSink{Store: postgres.NewReportRepository(pool)})
		fmt.Printf("Report history and reference cache enabled (PostgreSQL)\n")
	}

	if len(recipients) > 0 {
		mailer, contacts, err := openMail(e.cfg, recipients)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.ReportMailer{Mailer: mailer, Recipients: contacts})
	}
	return sinks, nil
}

// openMail resolves contact names and creates the mailer.
func openMail(cfg *config.Config, names []string) (*notify.Mailer, []notify.Contact, error) {
	mailer, err := notify.NewMailer(cfg.SMTP)
	if err != nil {
		return nil, nil, err
	}
	book, err := notify.LoadContacts(cfg.Contacts.File)
	if err != nil {
		return nil, nil, err
	}
	contacts := make([]notify.Contact, 0, len(names))
	for _, name := range names {
		c, err := book.Get(name)
		if err != nil {
			return nil, nil, apperror.Wrap(apperror.KindConfiguration, err, "resolve --notify")
		}
		contacts = append(contacts, c)
	}
	return mailer, contacts, nil
}

// start begins printing events and, with --serve, the web server.
func (e *engine) start() {
	go printEvents(e.broadcaster.AddListener())

	if e.server != nil {
		go func() {
			if err := e.server.Start(); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
		}()
		fmt.Printf("Live display on http://%s:%d\n", e.cfg.Web.Host, e.cfg.Web.Port)
	}
}

// close releases everything newEngine acquired.
func (e *engine) close() {
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		if err := e.server.Shutdown(ctx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		cancel()
	}
	if e.frames != nil {
		e.frames.Close()
	}
	e.broadcaster.Close()
	if e.detector != nil {
		e.detector.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

// printEvents writes the status feed to stdout. Countdown ticks overwrite
// each other on one line.
func printEvents(ch <-chan events.Event) {
	onCountdown := false
	for ev := range ch {
		if ev.Type == events.TypeCountdown {
			fmt.Printf("\r%-40s", ev.Message)
			onCountdown = true
			continue
		}
		if onCountdown {
			fmt.Println()
			onCountdown = false
		}

		switch ev.Type {
		case events.TypeRecord:
			if rec, ok := ev.Data.(events.Record); ok {
				fmt.Print(rec.String())
				continue
			}
			fmt.Println(ev.Message)
		case events.TypeState:
			fmt.Printf("State: %s\n", ev.Message)
		case events.TypeError:
			fmt.Printf("Error: %s\n", ev.Message)
		default:
			fmt.Println(ev.Message)
		}
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM. A stop ends the session
// the same way its deadline does.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printReport prints the summary and the written files.
func printReport(r *report.Report) {
	if r == nil {
		return
	}
	fmt.Println()
	fmt.Print(r.Summary())
	if len(r.Files) > 0 {
		fmt.Printf("Report written to %s\n", strings.Join(r.Files, ", "))
	}
}

// exitError adds a hint for errors a user can fix.
func exitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, capture.ErrNoDeviceSupport):
		return fmt.Errorf("%w (or use an MJPEG URL or a directory as --source)", err)
	case apperror.IsKind(err, apperror.KindDevice):
		return fmt.Errorf("camera failed: %w", err)
	default:
		return err
	}
}
