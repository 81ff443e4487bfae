// Command loxrelay is the bridge's entry point: it wires the MQTT
// transport, UDP listener, ingress pipeline, egress dispatcher, control
// plane, and optional UI supervisor together and runs until terminated.
// Grounded on the teacher's cmd/hermodctl cobra+viper pattern and the
// original's main.py MQTTRelay.main / CLI argument handling in utils.py.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/loxrelay"
	"github.com/user/loxrelay/internal/config"
	"github.com/user/loxrelay/internal/control"
	"github.com/user/loxrelay/internal/egress"
	"github.com/user/loxrelay/internal/logging"
	"github.com/user/loxrelay/internal/pipeline"
	"github.com/user/loxrelay/internal/transport/mqtt"
	"github.com/user/loxrelay/internal/udpin"
	"github.com/user/loxrelay/internal/uiproc"
	"github.com/user/loxrelay/internal/whitelist"
)

var (
	cfgFile    string
	logLevel   string
	headless   bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "loxrelay",
	Short: "loxrelay bridges MQTT and a Loxone-style Miniserver controller",
	RunE:  run,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initViper)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.toml", "path to the bridge's configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARNING, ERROR, CRITICAL")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "suppress the UI supervisor")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve Prometheus metrics on")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("headless", rootCmd.PersistentFlags().Lookup("headless"))
}

func initViper() {
	viper.SetEnvPrefix("LOXRELAY")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	log := logging.New(os.Stderr, viper.GetString("log_level"))
	headless := viper.GetBool("headless")

	store, err := config.NewStore(cfgFile)
	if err != nil {
		return fmt.Errorf("loxrelay: load config: %w", err)
	}

	snap := store.Current()
	topics := control.NewTopics(snap.General.BaseTopic)

	pl := pipeline.New(snap.Topics.SubscriptionFilters, snap.Topics.DoNotForward, snap.General.CacheSize, log)

	broker := mqtt.New(snap.Broker.Host, snap.Broker.Port, snap.Broker.User, snap.Broker.Password, snap.Broker.ClientID, log)
	if err := broker.Connect(); err != nil {
		return fmt.Errorf("loxrelay: mqtt connect: %w", err)
	}
	defer broker.Disconnect()

	dispatcher := newDispatcher(store, log)
	defer dispatcher.Close()

	ui := uiproc.New("streamlit", []string{"run", "ui.py"}, headless, log, func(msg string) {
		_ = broker.Publish(topics.UIStatus, msg, false)
	})

	syncer := &whitelist.Syncer{
		Host:     strings.SplitN(snap.Miniserver.Host, ":", 2)[0],
		Port:     21,
		User:     snap.Miniserver.User,
		Password: snap.Miniserver.Password,
		Log:      log,
	}
	syncWhitelist := func() {
		titles, err := syncer.Sync()
		if err != nil {
			log.Error("loxrelay: whitelist sync failed, keeping previous whitelist", "error", err)
			return
		}
		if err := store.ReplaceWhitelist(titles); err != nil {
			log.Error("loxrelay: persisting synced whitelist failed", "error", err)
			return
		}
		pl.ClearCaches()
		log.Info("loxrelay: whitelist synced from miniserver", "count", len(titles))
	}

	restart := func() {
		ui.Stop()
		broker.Disconnect()
		self, err := os.Executable()
		if err != nil {
			log.Error("loxrelay: cannot determine executable for restart", "error", err)
			return
		}
		if err := syscall.Exec(self, os.Args, os.Environ()); err != nil {
			log.Error("loxrelay: restart exec failed", "error", err)
		}
	}

	router := control.New(topics, store, broker, log, syncWhitelist, restart, ui.Start, ui.Stop)

	ctx := context.Background()
	handler := func(topic string, payload []byte, retained bool) {
		if router.Route(topic, payload) {
			return
		}
		cur := store.Current()
		var echo pipeline.EchoFunc
		if cur.Debug.PublishProcessedTopics {
			echo = func(t, v string) { _ = broker.Publish(cur.General.BaseTopic+"processedtopics/"+t, v, false) }
		}
		pairs := pl.Process(topic, payload, cur, echo)

		var fwdEcho egress.EchoFunc
		if cur.Debug.PublishForwardedTopics {
			// Forward echoes once per pair, in pairs' order, so next tracks
			// the pair whose value belongs in the echo body.
			next := 0
			fwdEcho = func(t string, res egress.Result) {
				value := pairs[next].Value
				next++
				_ = broker.Publish(cur.General.BaseTopic+"forwardedtopics/"+t, egress.MarshalEcho(value, res), false)
			}
		}
		egress.Forward(ctx, dispatcher, pairs, fwdEcho)
	}

	subs := append(append([]string{}, snap.Topics.Subscriptions...), topics.Subscriptions()...)
	if err := broker.Subscribe(subs, handler); err != nil {
		return fmt.Errorf("loxrelay: subscribe: %w", err)
	}

	if snap.Miniserver.SyncWithMiniserver {
		go syncWhitelist()
	}

	if expr := snap.Miniserver.ResyncCron; expr != "" {
		sched := cron.New()
		if _, err := sched.AddFunc(expr, syncWhitelist); err != nil {
			log.Error("loxrelay: invalid resync_cron expression, periodic resync disabled", "expr", expr, "error", err)
		} else {
			sched.Start()
			defer sched.Stop()
			log.Info("loxrelay: periodic whitelist resync scheduled", "expr", expr)
		}
	}

	go runUDPListener(snap.UDP.Port, log, func(raw string) {
		msg, ok := udpin.Parse(raw)
		if !ok {
			return
		}
		_ = broker.Publish(msg.Topic, msg.Payload, msg.Command == udpin.Retain)
	})

	ui.Start()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(metricsAddr, nil)
	}()

	log.Info("loxrelay: started", "base_topic", snap.General.BaseTopic)
	select {}
}

// runUDPListener serves C8's inbound UDP surface (spec §4.8): every
// datagram received on 0.0.0.0:port is handled independently, with no
// ordering guarantee relative to MQTT ingress.
func runUDPListener(port int, log loxrelay.Logger, handle func(raw string)) {
	conn, err := net.ListenPacket("udp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Error("loxrelay: udp listen failed", "port", port, "error", err)
		return
	}
	defer conn.Close()

	buf := make([]byte, 65535)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			log.Error("loxrelay: udp read failed", "error", err)
			continue
		}
		handle(string(buf[:n]))
	}
}

func newDispatcher(store *config.Store, log loxrelay.Logger) egress.Dispatcher {
	snap := store.Current()
	host := snap.Miniserver.Host
	if snap.Miniserver.EnableMock && snap.Miniserver.MockHost != "" {
		host = snap.Miniserver.MockHost
	}
	if snap.Miniserver.UseWebsocket {
		return egress.NewWebSocketDispatcher(host, snap.Miniserver.Port, snap.Miniserver.User, snap.Miniserver.Password, log)
	}
	return egress.NewHTTPDispatcher(host, snap.Miniserver.Port, snap.Miniserver.User, snap.Miniserver.Password, snap.Miniserver.MaxParallelConnections, log)
}

func main() {
	Execute()
}
