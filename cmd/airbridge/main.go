package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"airbridge/internal/airthings"
	"airbridge/internal/api"
	"airbridge/internal/config"
	"airbridge/internal/device"
	"airbridge/internal/events"
	"airbridge/internal/mqtt"
	"airbridge/internal/poll"
	"airbridge/internal/storage"
)

// Version is set at build time via -ldflags "-X main.Version=vX.Y.Z"
var Version = "dev"

const eventStoreSize = 500

func main() {
	// Load configuration from .env file
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded: %s", cfg)

	if cfg.ClientID() == "" || cfg.ClientSecret() == "" {
		log.Fatalf("AirThings credentials are not configured (set %s and %s)",
			config.EnvClientID, config.EnvClientSecret)
	}
	if cfg.SerialNumber() == "" {
		log.Fatalf("Device serial number is not configured (set %s)", config.EnvSerialNumber)
	}

	logger := log.Default()

	// Open persistent storage
	store, err := storage.NewBoltStorage(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	eventStore := events.NewStore(eventStoreSize)

	// AirThings cloud client
	cloud := airthings.New(airthings.Config{
		ClientID:     cfg.ClientID(),
		ClientSecret: cfg.ClientSecret(),
		AccountsURL:  cfg.AccountsURL(),
		APIURL:       cfg.APIURL(),
	}, logger)

	// MQTT is optional; without a broker the bridge still polls and serves
	// its state over the HTTP API
	var mqttClient *mqtt.Client
	var publisher *mqtt.Publisher
	if cfg.MQTTBroker() != "" {
		mqttClient, err = mqtt.New(mqtt.Config{
			Broker:   cfg.MQTTBroker(),
			ClientID: cfg.MQTTClientID(),
			Username: cfg.MQTTUsername(),
			Password: cfg.MQTTPassword(),
			Prefix:   cfg.MQTTPrefix(),
			UseTLS:   cfg.MQTTUseTLS(),
		}, logger)
		if err != nil {
			log.Fatalf("Failed to create MQTT client: %v", err)
		}

		if err := mqttClient.Connect(); err != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		defer mqttClient.Disconnect()

		publisher = mqtt.NewPublisher(mqttClient, logger)
		if err := publisher.PublishAvailability(true); err != nil {
			logger.Printf("[Main] Failed to publish availability: %v", err)
		}

		discovery := mqtt.NewDiscoveryManager(mqttClient, logger, store)
		if discovery.ShouldRepublish(cfg.SerialNumber()) {
			configs := mqtt.AttributeConfigs(cfg.SerialNumber())
			if err := discovery.PublishAll(cfg.SerialNumber(), configs); err != nil {
				logger.Printf("[Main] Failed to publish discovery configs: %v", err)
			} else {
				eventStore.Add(events.EventDiscoveryPublished, true, "")
			}
		}
	}

	// Publisher is nil without a broker; a nil Sink interface keeps the
	// attribute store broker-free
	var sink device.Sink
	if publisher != nil {
		sink = publisher
	}

	// Device handler
	session, err := device.NewSession(store)
	if err != nil {
		log.Fatalf("Failed to restore session: %v", err)
	}
	attrs := device.NewAttributes(store, sink, eventStore, logger)
	handler := device.NewHandler(cloud, cfg.SerialNumber(), session, attrs, store, eventStore, logger)

	// Periodic poll runner. Successful cycles also push the aggregated
	// reading snapshot to the broker.
	runner := poll.NewRunner(cfg.PollInterval(), logger, "Poll", func(ctx context.Context) {
		result := handler.RunCycle(ctx)
		if publisher != nil && result.Success {
			if err := publisher.PublishSnapshot(handler.LastReading()); err != nil {
				logger.Printf("[Main] Failed to publish reading snapshot: %v", err)
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	// Shut down cleanly on SIGINT/SIGTERM so MQTT availability flips offline
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Printf("[Main] Shutting down")
		if publisher != nil {
			if err := publisher.PublishAvailability(false); err != nil {
				logger.Printf("[Main] Failed to publish offline status: %v", err)
			}
			mqttClient.Disconnect()
		}
		cancel()
		store.Close()
		os.Exit(0)
	}()

	// Create API server
	server := api.NewServer(cfg, handler, runner, eventStore, store, mqttClient)

	// Start server
	addr := cfg.Addr()
	fmt.Printf("AirBridge %s starting on %s\n", Version, addr)

	if cfg.NoAuth() {
		fmt.Println("WARNING: Authentication is DISABLED!")
	}

	// Print access URLs
	port := addr
	if strings.HasPrefix(port, ":") {
		port = port[1:]
	} else if idx := strings.LastIndex(port, ":"); idx != -1 {
		port = port[idx+1:]
	}
	printAccessURLs(port)

	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// getLocalIPs returns all local IP addresses
func getLocalIPs() []string {
	var ips []string

	interfaces, err := net.Interfaces()
	if err != nil {
		return ips
	}

	for _, iface := range interfaces {
		// Skip down or loopback interfaces
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Skip loopback and IPv6
			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}

			ips = append(ips, ip.String())
		}
	}

	return ips
}

// printAccessURLs prints all available access URLs
func printAccessURLs(port string) {
	ips := getLocalIPs()
	if len(ips) == 0 {
		fmt.Printf("\nAPI listening on http://localhost:%s\n", port)
		return
	}

	fmt.Println("\nAccess URLs:")
	for _, ip := range ips {
		fmt.Printf("  http://%s:%s\n", ip, port)
	}
	fmt.Println()
}
