package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/VanDung-dev/HieraChain-ListView/api"
	"github.com/VanDung-dev/HieraChain-ListView/ipc"
	"github.com/VanDung-dev/HieraChain-ListView/network"
)

const namespace = "listview"

func main() {
	app := kingpin.New("listview-server", "Validate and compare Arrow list-view batches over TCP and ZeroMQ.")
	logLevel := app.Flag("log.level", "Log level (debug, info, warn, error)").Default("info").Enum("debug", "info", "warn", "error")

	serve := app.Command("serve", "Run the TCP server").Default()
	configFile := serve.Flag("config.file", "YAML configuration file").String()
	address := serve.Flag("addr", "Address to listen on; overrides the config file").String()
	metricsAddress := serve.Flag("metrics.addr", "Address for /metrics and /health; overrides the config file").String()
	sinkEndpoint := serve.Flag("sink.endpoint", "ZeroMQ endpoint to receive shipped batches on, e.g. tcp://*:5555").String()

	check := app.Command("check", "Validate the list-view columns of an Arrow IPC stream file")
	checkFile := check.Arg("file", "Arrow IPC stream file").Required().ExistingFile()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	logger := newLogger(*logLevel)

	var err error
	switch cmd {
	case serve.FullCommand():
		err = runServe(logger, *configFile, *address, *metricsAddress, *sinkEndpoint)
	case check.FullCommand():
		err = runCheck(*checkFile)
	}
	if err != nil {
		level.Error(logger).Log("msg", "exiting", "err", err)
		os.Exit(1)
	}
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	switch lvl {
	case "debug":
		logger = level.NewFilter(logger, level.AllowDebug())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func loadConfig(path, address, metricsAddress string) (*api.ServerConfig, error) {
	config := api.DefaultServerConfig()
	if path != "" {
		var err error
		if config, err = api.LoadServerConfig(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if address != "" {
		config.Address = address
	}
	if metricsAddress != "" {
		config.MetricsAddress = metricsAddress
	}
	return config, nil
}

func runServe(logger log.Logger, path, address, metricsAddress, sinkEndpoint string) error {
	config, err := loadConfig(path, address, metricsAddress)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := api.NewArrowServer(config, log.With(logger, "component", "server"), api.NewMetrics(namespace, reg))
	if err := server.StartAsync(); err != nil {
		return err
	}
	defer server.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if config.MetricsAddress != "" {
		metricsServer := api.NewMetricsServer(config.MetricsAddress, reg)
		g.Go(metricsServer.Start)
		g.Go(func() error {
			<-ctx.Done()
			return metricsServer.Stop()
		})
		level.Info(logger).Log("msg", "metrics listening", "addr", config.MetricsAddress)
	}

	if sinkEndpoint != "" {
		sink := network.NewSink(network.DefaultSinkConfig(sinkEndpoint), logger, network.NewSinkMetrics(namespace, reg))
		if err := sink.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			sink.Stop()
			return nil
		})
		g.Go(func() error {
			for batch := range sink.Batches() {
				level.Info(logger).Log("msg", "batch received", "from", batch.From, "seq", batch.Seq, "arrays", len(batch.Arrays), "rows", batch.Rows())
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		level.Info(logger).Log("msg", "shutting down")
		return nil
	})

	return g.Wait()
}

func runCheck(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read stream")
	}

	w := ipc.NewIPCWriter()
	records, err := w.DeserializeAllFromIPC(data)
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	for i, record := range records {
		for j := 0; j < int(record.NumCols()); j++ {
			var desc string
			switch record.Column(j).DataType().ID() {
			case arrow.LIST_VIEW:
				arr, err := ipc.ListViewColumn[int32](record, j)
				if err != nil {
					return errors.Wrapf(err, "record %d", i)
				}
				desc = arr.String()
			case arrow.LARGE_LIST_VIEW:
				arr, err := ipc.ListViewColumn[int64](record, j)
				if err != nil {
					return errors.Wrapf(err, "record %d", i)
				}
				desc = arr.String()
			default:
				continue
			}
			fmt.Printf("record %d column %q: %s\n", i, record.ColumnName(j), desc)
		}
	}
	return nil
}
