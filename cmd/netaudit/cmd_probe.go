package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"netaudit/internal/artifact"
	"netaudit/internal/contract"
	"netaudit/internal/index"
	"netaudit/internal/probe"
	"netaudit/internal/session"
)

var probeFlags struct {
	file    string
	hosts   []string
	port    int
	user    string
	passEnv string
	askPass bool
	output  string
	db      string
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Execute a frozen contract against one or more devices",
	Long: "Probe opens an SSH session per device, runs the contract's commands in\n" +
		"declared order, and stores every raw capture plus a run manifest.\n" +
		"Devices are probed in parallel; a device failure never aborts the others.",
	RunE: runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.StringVarP(&probeFlags.file, "file", "f", "", "Contract YAML path (required)")
	f.StringSliceVar(&probeFlags.hosts, "host", nil, "Device host, repeatable (required)")
	f.IntVar(&probeFlags.port, "port", 22, "SSH port")
	f.StringVarP(&probeFlags.user, "user", "u", "", "SSH username (required)")
	f.StringVar(&probeFlags.passEnv, "pass-env", "NETAUDIT_PASSWORD", "Environment variable holding the SSH password")
	f.BoolVar(&probeFlags.askPass, "ask-pass", false, "Read the SSH password from stdin instead")
	f.StringVarP(&probeFlags.output, "output", "o", ".netaudit", "Artifact store root")
	f.StringVar(&probeFlags.db, "db", index.DefaultPath, "Run/freeze index path")

	_ = probeCmd.MarkFlagRequired("file")
	_ = probeCmd.MarkFlagRequired("host")
	_ = probeCmd.MarkFlagRequired("user")
}

func runProbe(cmd *cobra.Command, _ []string) error {
	password, err := probePassword()
	if err != nil {
		return err
	}

	c, err := validateContract(cmd, probeFlags.file)
	if err != nil {
		return err
	}
	sessCfg, ok := session.Preset(c.Platform())
	if !ok {
		return fmt.Errorf("no session preset for platform %q (known: %s)",
			c.Platform(), strings.Join(session.Platforms(), ", "))
	}
	// Preamble commands obey the same safety screening as contract commands.
	for _, pre := range sessCfg.PagingDisable {
		if hit := contract.Screen(pre, contract.DefaultDenylist); hit != "" {
			return fmt.Errorf("preset preamble %q matches blocked keyword %q", pre, hit)
		}
	}

	store, err := artifact.Open(probeFlags.output)
	if err != nil {
		return err
	}
	ix, err := index.Open(probeFlags.db)
	if err != nil {
		return err
	}
	defer ix.Close()

	factory := func(dev probe.Device, creds probe.Credentials) session.Transport {
		return session.NewSSHTransport(session.SSHConfig{
			Host:     dev.Host,
			Port:     dev.Port,
			Username: creds.Username,
			Password: creds.Password,
		})
	}
	engine := probe.NewEngine(store, factory, sessCfg,
		probe.WithFrozenCheck(ix.VerifyFrozen),
		probe.WithRecorder(ix.RecordRun),
	)

	devices := make([]probe.Device, len(probeFlags.hosts))
	for i, h := range probeFlags.hosts {
		devices[i] = probe.Device{Host: h, Port: probeFlags.port}
	}
	creds := probe.Credentials{Username: probeFlags.user, Password: password}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	manifests, probeErr := engine.ProbeAll(ctx, devices, c, creds)

	out := cmd.OutOrStdout()
	missing := 0
	for i, m := range manifests {
		if m == nil {
			missing++
			fmt.Fprintf(out, "%s: no run\n", devices[i].Host)
			continue
		}
		ok := 0
		for _, r := range m.Results {
			if r.Status == probe.StatusOK {
				ok++
			}
		}
		fmt.Fprintf(out, "%s: run %s status %s (%d/%d commands)\n",
			m.Host, m.RunID, m.Status, ok, c.Len())
	}
	if missing > 0 {
		// A device with no run at all means a freeze or store failure, not a
		// session-level problem. That is a hard error.
		return probeErr
	}
	return nil
}

// probePassword resolves the device password without it ever touching flags
// or process arguments.
func probePassword() (string, error) {
	if probeFlags.askPass {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	password := os.Getenv(probeFlags.passEnv)
	if password == "" {
		return "", fmt.Errorf("environment variable %s is empty (set it or use --ask-pass)", probeFlags.passEnv)
	}
	return password, nil
}
