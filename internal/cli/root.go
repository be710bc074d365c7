// Package cli provides the command-line interface. Every command is a thin
// adapter over the api.Service operation surface and the event stream.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"gopkg.in/yaml.v3"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/api"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/appconfig"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/bus"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/doctor"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/journal"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/knownhosts"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/logging"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/profile"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshbin"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshclient"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshimport"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/supervisor"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/ui"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/util"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/web"
)

// deps carries the lazily-constructed service shared by all subcommands.
type deps struct {
	cfg     appconfig.Config
	store   *profile.Store
	service *api.Service
}

func (d *deps) init() error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Logging); err != nil {
		return err
	}
	store, err := profile.NewDefault()
	if err != nil {
		return err
	}
	mgr := supervisor.New(store, cfg, sshclient.New())
	d.cfg = cfg
	d.store = store
	d.service = api.New(store, mgr)
	return nil
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	d := &deps{}
	root := &cobra.Command{
		Use:           "revssh",
		Short:         "Reverse SSH tunnel session manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return d.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run(d.service, d.cfg)
		},
	}

	root.AddCommand(
		newProfileCmd(d),
		newUpCmd(d),
		newDownCmd(d),
		newStatusCmd(d),
		newLogsCmd(d),
		newAttachCmd(d),
		newImportCmd(d),
		newDoctorCmd(d),
		newServeCmd(d),
	)
	return root
}

func newProfileCmd(d *deps) *cobra.Command {
	root := &cobra.Command{Use: "profile", Short: "Manage connection profiles"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := d.service.ListProfiles()
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %-28s %-8s %-10s %s\n", "NAME", "HOST", "PORT", "AUTH", "TUNNELS")
			for _, p := range profiles {
				fmt.Printf("%-20s %-28s %-8d %-10s %d\n", p.Name, p.Destination(), p.Port, p.Auth.Method, len(p.Tunnels))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Show one profile as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := d.service.GetProfile(args[0])
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(p)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(b)
			return err
		},
	}

	var (
		host        string
		port        int
		user        string
		keyFile     string
		passwdAuth  bool
		forwards    []string
		noReconnect bool
		maxAttempts int
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.DefaultProfile()
			p.Name = args[0]
			p.Host = host
			p.User = user
			if port != 0 {
				p.Port = port
			}
			switch {
			case keyFile != "":
				p.Auth = model.Auth{Method: model.AuthKeyFile, KeyPath: keyFile}
			case passwdAuth:
				p.Auth = model.Auth{Method: model.AuthPassword}
			}
			p.AutoReconnect = !noReconnect
			p.MaxReconnectAttempts = maxAttempts
			for _, f := range forwards {
				t, err := parseTunnelArg(f)
				if err != nil {
					return err
				}
				p.Tunnels = append(p.Tunnels, t)
			}
			created, err := d.service.CreateProfile(p)
			if err != nil {
				return err
			}
			fmt.Printf("created profile %s\n", created.Name)
			return nil
		},
	}
	create.Flags().StringVar(&host, "host", "", "SSH server hostname or IP (required)")
	create.Flags().IntVar(&port, "port", 0, "SSH server port (default 22)")
	create.Flags().StringVar(&user, "user", "", "SSH username (required)")
	create.Flags().StringVar(&keyFile, "key", "", "identity file path (key auth)")
	create.Flags().BoolVar(&passwdAuth, "password", false, "use password auth via sshpass")
	create.Flags().StringArrayVar(&forwards, "tunnel", nil,
		"reverse tunnel spec remotePort:localHost:localPort or bind:remotePort:localHost:localPort (repeatable)")
	create.Flags().BoolVar(&noReconnect, "no-reconnect", false, "disable automatic reconnection")
	create.Flags().IntVar(&maxAttempts, "max-attempts", 0, "max reconnect attempts (0 = unlimited)")
	_ = create.MarkFlagRequired("host")
	_ = create.MarkFlagRequired("user")
	_ = create.MarkFlagRequired("tunnel")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile (running sessions keep their snapshot)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := d.service.DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted profile %s\n", args[0])
			return nil
		},
	}

	root.AddCommand(list, show, create, del)
	return root
}

func newUpCmd(d *deps) *cobra.Command {
	var passwordEnv string
	var wait bool
	cmd := &cobra.Command{
		Use:   "up <profile>",
		Short: "Start a session for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if passwordEnv != "" {
				password = os.Getenv(passwordEnv)
				if password == "" {
					return fmt.Errorf("environment variable %s is empty", passwordEnv)
				}
			}

			sub := d.service.SubscribeEvents()
			defer sub.Close()

			id, err := d.service.StartSessionWithPassword(args[0], password)
			if err != nil {
				return fmt.Errorf("start session: %w", err)
			}
			fmt.Printf("session %s starting\n", id)
			// Sessions are process-lifetime only, so by default the command
			// foregrounds the supervisor until interrupted.
			return followSession(d, sub, id, !wait)
		},
	}
	cmd.Flags().StringVar(&passwordEnv, "password-env", "",
		"name of an environment variable holding the SSH password")
	cmd.Flags().BoolVar(&wait, "until-connected", false,
		"exit as soon as the session connects or fails")
	return cmd
}

// followSession renders a session's events. With foreground=true it runs
// until interrupted (stopping all sessions on the way out) or until the
// session stops or fails; otherwise it also returns at the first Connected
// event.
func followSession(d *deps, sub *bus.Subscriber, id string, foreground bool) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			d.service.StopAllSessions()
			// Keep consuming until our session's stop confirmation arrives.
			for evt := range sub.Events() {
				if evt.SessionID == id && (evt.Type == model.EventSessionStopped || evt.Type == model.EventSessionFailed) {
					return nil
				}
			}
			return nil
		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if evt.SessionID != id {
				continue
			}
			printEvent(evt)
			switch evt.Type {
			case model.EventSessionConnected:
				if !foreground {
					return nil
				}
			case model.EventSessionFailed:
				return fmt.Errorf("session failed: %s", logging.Redact(evt.Error))
			case model.EventSessionStopped:
				return nil
			}
		}
	}
}

func newDownCmd(d *deps) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "down [session-id]",
		Short: "Stop a session by id, or all sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				n := d.service.StopAllSessions()
				fmt.Printf("signaled %d session(s)\n", n)
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("provide a session id or --all")
			}
			if err := d.service.StopSession(args[0]); err != nil {
				return err
			}
			fmt.Printf("stop signaled for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "stop every session")
	return cmd
}

func newStatusCmd(d *deps) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show live sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := d.service.ListSessions()
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			fmt.Printf("%-36s %-20s %-13s %-8s %-10s %s\n", "ID", "PROFILE", "STATUS", "PID", "RECONNECTS", "LAST ERROR")
			for _, s := range sessions {
				pid := "-"
				if s.PID > 0 {
					pid = strconv.Itoa(s.PID)
				}
				fmt.Printf("%-36s %-20s %-13s %-8s %-10d %s\n",
					s.ID, s.ProfileName, s.Status, pid, s.ReconnectCount, util.EmptyDash(logging.Redact(s.LastError)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newLogsCmd(d *deps) *cobra.Command {
	var (
		follow      bool
		limit       int
		profileName string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recorded lifecycle events, optionally following live ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := journal.NewStore()
			past, err := store.Read(journal.Query{ProfileName: profileName, Limit: limit})
			if err != nil {
				return err
			}
			for _, evt := range past {
				printEvent(evt)
			}
			if !follow {
				return nil
			}
			sub := d.service.SubscribeEvents()
			defer sub.Close()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			for {
				select {
				case <-sigCh:
					return nil
				case evt, ok := <-sub.Events():
					if !ok {
						return nil
					}
					if profileName != "" && evt.ProfileName != profileName {
						continue
					}
					printEvent(evt)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow live events")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max past events to show")
	cmd.Flags().StringVar(&profileName, "profile", "", "filter by profile name")
	return cmd
}

func newAttachCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <profile>",
		Short: "Open an interactive SSH session to a profile's host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := d.service.GetProfile(args[0])
			if err != nil {
				return err
			}
			info, err := sshbin.NewDetector(d.cfg.SSH.BinaryPath).Detect()
			if err != nil {
				return err
			}
			khPath, err := knownhosts.Resolve(d.cfg.SSH.UseAppKnownHosts)
			if err != nil {
				return err
			}
			args2, err := sshclient.BuildInteractiveArgs(sshclient.BuildInput{
				Profile:               p,
				KnownHostsPath:        khPath,
				StrictHostKeyChecking: d.cfg.SSH.StrictHostKeyOption(),
			})
			if err != nil {
				return err
			}
			return sshclient.New().RunInteractive(cmd.Context(), info.Path, args2)
		},
	}
}

func newImportCmd(d *deps) *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import profiles from ~/.ssh/config hosts with RemoteForward directives",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res sshimport.Result
				err error
			)
			if fromFile != "" {
				res, err = sshimport.FromFile(fromFile)
			} else {
				res, err = sshimport.FromDefaultConfig()
			}
			if err != nil {
				return err
			}
			for _, p := range res.Profiles {
				if _, err := d.service.CreateProfile(p); err != nil {
					slog.Warn("skipping import", "profile", p.Name, "error", err)
					continue
				}
				fmt.Printf("imported %s\n", p.Name)
			}
			for alias, reason := range res.Skipped {
				fmt.Fprintf(os.Stderr, "skipped %s: %s\n", alias, reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fromFile, "file", "", "SSH config file to read (default ~/.ssh/config)")
	return cmd
}

func newDoctorCmd(d *deps) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := doctor.Run(d.cfg, d.store)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if len(report.Issues) == 0 {
				fmt.Println("no issues found")
				return nil
			}
			for _, issue := range report.Issues {
				fmt.Printf("[%s] %s (%s): %s\n    %s\n",
					strings.ToUpper(string(issue.Severity)), issue.Check, issue.Target, issue.Message, issue.Recommendation)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newServeCmd(d *deps) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP/WebSocket adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Record every event to the journal while serving.
			journalSub := d.service.SubscribeEvents()
			go journal.NewStore().Record(journalSub)
			defer journalSub.Close()

			if d.cfg.General.AutoStartSessions {
				autoStart(d)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(d.service, addr)
			defer d.service.Close()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8422", "listen address")
	return cmd
}

// autoStart launches a session for every stored profile except password-auth
// profiles, which are skipped.
func autoStart(d *deps) {
	profiles, err := d.service.ListProfiles()
	if err != nil {
		slog.Warn("auto-start: list profiles", "error", err)
		return
	}
	for _, p := range profiles {
		if p.Auth.Method == model.AuthPassword {
			slog.Warn("auto-start: skipping password profile", "profile", p.Name)
			continue
		}
		if _, err := d.service.StartSession(p.Name); err != nil {
			slog.Warn("auto-start failed", "profile", p.Name, "error", err)
		}
	}
}

func printEvent(evt model.Event) {
	ts := evt.Timestamp.Local().Format("15:04:05")
	switch evt.Type {
	case model.EventSessionStarted:
		fmt.Printf("%s %s %s: started\n", ts, shortID(evt.SessionID), evt.ProfileName)
	case model.EventSessionConnected:
		fmt.Printf("%s %s %s: connected\n", ts, shortID(evt.SessionID), evt.ProfileName)
	case model.EventSessionDisconnected:
		fmt.Printf("%s %s %s: disconnected (%s)\n", ts, shortID(evt.SessionID), evt.ProfileName, logging.Redact(evt.Reason))
	case model.EventSessionReconnecting:
		fmt.Printf("%s %s %s: reconnecting attempt %d in %ds\n", ts, shortID(evt.SessionID), evt.ProfileName, evt.Attempt, evt.DelaySecs)
	case model.EventSessionFailed:
		fmt.Printf("%s %s %s: failed: %s\n", ts, shortID(evt.SessionID), evt.ProfileName, logging.Redact(evt.Error))
	case model.EventSessionStopped:
		fmt.Printf("%s %s %s: stopped\n", ts, shortID(evt.SessionID), evt.ProfileName)
	case model.EventSessionOutput:
		fmt.Printf("%s %s %s: ssh: %s\n", ts, shortID(evt.SessionID), evt.ProfileName, evt.Line)
	case model.EventAllSessionsStopped:
		fmt.Printf("%s all sessions stopped\n", ts)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parseTunnelArg parses remotePort:localHost:localPort or
// bind:remotePort:localHost:localPort.
func parseTunnelArg(s string) (model.Tunnel, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 3:
		rp, err := strconv.Atoi(parts[0])
		if err != nil {
			return model.Tunnel{}, fmt.Errorf("invalid remote port in %q", s)
		}
		lp, err := strconv.Atoi(parts[2])
		if err != nil {
			return model.Tunnel{}, fmt.Errorf("invalid local port in %q", s)
		}
		return model.Tunnel{RemotePort: rp, LocalHost: parts[1], LocalPort: lp}, nil
	case 4:
		rp, err := strconv.Atoi(parts[1])
		if err != nil {
			return model.Tunnel{}, fmt.Errorf("invalid remote port in %q", s)
		}
		lp, err := strconv.Atoi(parts[3])
		if err != nil {
			return model.Tunnel{}, fmt.Errorf("invalid local port in %q", s)
		}
		return model.Tunnel{RemoteBind: parts[0], RemotePort: rp, LocalHost: parts[2], LocalPort: lp}, nil
	default:
		return model.Tunnel{}, fmt.Errorf("tunnel format must be remotePort:localHost:localPort or bind:remotePort:localHost:localPort")
	}
}
