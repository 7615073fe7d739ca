// provisiond CLI
//
// Headless first-boot Wi-Fi provisioning daemon. Advertises a BLE GATT
// service; a central reads device info, writes scan/connect commands, and
// subscribes to state notifications until Wi-Fi association succeeds.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pidevelop/provision-ble/pkg/ble"
	"github.com/pidevelop/provision-ble/pkg/config"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
	"github.com/pidevelop/provision-ble/pkg/dispatcher"
	"github.com/pidevelop/provision-ble/pkg/logger"
	"github.com/pidevelop/provision-ble/pkg/metrics"
	"github.com/pidevelop/provision-ble/pkg/netlinkmon"
	"github.com/pidevelop/provision-ble/pkg/provision"
	"github.com/pidevelop/provision-ble/pkg/wifi"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
	gitCommit = "unknown"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:     "provisiond",
		Short:   "provisiond - headless BLE Wi-Fi provisioning daemon",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: searches standard locations)")

	rootCmd.AddCommand(newServeCmd(), newVersionCmd(), newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("provisiond %s (commit: %s, built: %s)\n", version, gitCommit, buildTime)
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return printConfig(cfg)
		},
	})
	return configCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the provisioning daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, File: cfg.Logging.File})
	logger.SetGlobal(log)
	defer log.Close()

	log.Info("provisiond %s starting", version)

	if err := serve(cfg, log); err != nil {
		log.Error("startup failed: %v", err)
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	return nil
}

// serve wires the GATT tree, the NetworkManager client, the netlink
// monitor, and the dispatcher together, then blocks until signaled.
func serve(cfg *config.Config, log *logger.Logger) error {
	sysBus, err := dbusx.NewSystemClient()
	if err != nil {
		return fmt.Errorf("%w: %v", ble.ErrAdapterNotFound, err)
	}

	adapter, err := ble.FindAdapter(sysBus, cfg.Adapter.ID)
	if err != nil {
		return err
	}
	log.Info("using adapter %s", adapter)

	if err := ble.SetAdapterAlias(sysBus, adapter, cfg.Adapter.Alias); err != nil {
		log.Warn("set adapter alias: %v", err)
	}

	var loop *dispatcher.Loop
	var machine *provision.Machine

	stateChar := ble.NewCharacteristic(sysBus, log, ble.StateCharPath, ble.ServicePath, ble.StateUUID, []string{"read", "notify"}).
		OnRead(func() []byte {
			if machine == nil {
				return provision.StateJSON(provision.Unconfigured)
			}
			return provision.StateJSON(machine.State())
		})

	deviceInfoChar := ble.NewCharacteristic(sysBus, log, ble.DeviceInfoCharPath, ble.ServicePath, ble.DeviceInfoUUID, []string{"read"}).
		OnRead(func() []byte { return []byte(ble.DeviceInfoPayload) })

	commandChar := ble.NewCharacteristic(sysBus, log, ble.CommandCharPath, ble.ServicePath, ble.CommandUUID, []string{"write"})

	registry := ble.NewRegistry(log, stateChar, deviceInfoChar, commandChar)

	loop = dispatcher.New(func(ev netlinkmon.Event) {
		handleNetlinkEvent(cfg, sysBus, machine, log, ev)
	})

	notify := func(value []byte) { registry.NotifyValue(ble.StateCharPath, value) }
	machine = provision.NewMachine(log, notify)

	nm := wifi.NewClient(sysBus, cfg.Wifi.Interface)
	scanner := wifi.NewScanner(nm, log)
	connector := wifi.NewConnector(nm, log)

	commandChar.OnWrite(func(value []byte) {
		loop.Post(func() {
			provision.Dispatch(value, machine, scanner.Scan, connector.Connect)
		})
	})

	stateChar.OnNotifyStateChange(func(enabled bool) {
		if enabled {
			loop.Post(machine.StartNotifyOnState)
		}
	})

	service := ble.NewService(sysBus, ble.ServicePath, ble.ServiceUUID)
	app := ble.NewApplication(sysBus, ble.AppPath, service, deviceInfoChar, stateChar, commandChar)
	adv := ble.NewAdvertisement(sysBus, log, ble.AdvertisementPath, ble.ServiceUUID)

	if _, err := service.Export(); err != nil {
		return fmt.Errorf("%w: %v", dbusx.ErrExport, err)
	}
	for _, c := range []*ble.Characteristic{deviceInfoChar, stateChar, commandChar} {
		if _, err := c.Export(); err != nil {
			return fmt.Errorf("%w: %v", dbusx.ErrExport, err)
		}
	}
	if _, err := app.Export(); err != nil {
		return fmt.Errorf("%w: %v", dbusx.ErrExport, err)
	}
	if _, err := adv.Export(); err != nil {
		return fmt.Errorf("%w: %v", dbusx.ErrExport, err)
	}

	if err := ble.RegisterApplication(sysBus, adapter, ble.AppPath); err != nil {
		return err
	}
	if err := ble.RegisterAdvertisement(sysBus, adapter, ble.AdvertisementPath); err != nil {
		return err
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Listen)
		metricsSrv.Start()
		log.Info("metrics listening on %s", cfg.Metrics.Listen)
	}

	monitor := netlinkmon.New(log, cfg.Wifi.Interface, func(fn func()) { fn() }, loop.PostNetlinkEvent)
	go func() {
		if err := monitor.Run(); err != nil {
			log.Error("netlink monitor exited: %v", err)
		}
	}()

	go loop.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	monitor.Stop()
	loop.Stop()
	if metricsSrv != nil {
		_ = metricsSrv.Stop(context.Background())
	}
	return nil
}

func handleNetlinkEvent(cfg *config.Config, sysBus *dbusx.Client, machine *provision.Machine, log *logger.Logger, ev netlinkmon.Event) {
	if ev.Kind != netlinkmon.Ipv4Ready {
		return
	}
	nm := wifi.NewClient(sysBus, cfg.Wifi.Interface)
	ssid := nm.ActiveSSID()
	ip := nm.FirstIPv4()
	if ip == "" {
		return
	}
	metrics.Ipv4ReadyEvents.Inc()
	machine.Ipv4Ready(ssid, ip)
}

func printConfig(cfg *config.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
