package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"flag"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"

	"github.com/hubertat/io22d08"
)

const defaultSyncInterval = "330ms"
const defaultRefreshInterval = "3ms"

var (
	Version string
	Build   string

	config          = flag.String("config", "config.json", "path of the configuration file")
	flagInstall     = flag.Bool("install", false, "Install service in os")
	syncInterval    = flag.String("sync", defaultSyncInterval, "sync interval (time.Duration)")
	refreshInterval = flag.String("refresh", defaultRefreshInterval, "display/relay refresh interval (time.Duration)")

	kitService = servicemaker.ServiceMaker{
		User:               "io22d08",
		UserGroups:         []string{"gpio"},
		ServicePath:        "/etc/systemd/system/io22d08.service",
		ServiceDescription: "IO22D08 relay/display board controller. github.com/hubertat/io22d08",
		ExecDir:            "/srv/io22d08",
		ExecName:           "io22d08",
	}
)

func main() {
	log.Info("io22d08 kit started", "version", Version)
	flag.Parse()

	if *flagInstall {
		err := kitService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Info("service installed!")
			return
		}
	}

	syncDuration, err := time.ParseDuration(*syncInterval)
	if err != nil {
		panic(err)
	}
	refreshDuration, err := time.ParseDuration(*refreshInterval)
	if err != nil {
		panic(err)
	}

	kit := &io22d08.Kit{}
	configFile, err := os.Open(*config)
	if err != nil {
		log.Fatal("can't find/open config file, will terminate", "path", *config, "err", err)
	}
	cBuff, err := io.ReadAll(configFile)
	configFile.Close()
	if err != nil {
		log.Fatal("failed reading config file", "err", err)
	}
	err = json.Unmarshal(cBuff, kit)
	if err != nil {
		log.Fatal("failed unmarshalling json config", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("will init kit drivers...")
	err = kit.InitDrivers(ctx)
	defer kit.Close()
	if err != nil {
		panic(err)
	}

	log.Info("will init board and ios...")
	err = kit.InitIos()
	if err != nil {
		panic(err)
	}

	err = kit.MatchControllers()
	if err != nil {
		log.Warn("matching controllers returned error, we will proceed", "err", err)
	}

	kit.PrintIoStatus(os.Stdout)

	kit.StartSampling(ctx)
	go kit.StartRefresh(ctx, refreshDuration)

	err = kit.Board.EnableRelays()
	if err != nil {
		panic(err)
	}

	if len(kit.HttpAddr) > 0 {
		err = kit.StartHttpServer()
		if err != nil {
			log.Warn("failed to start http server", "err", err)
		}
	}

	if len(kit.MqttBroker) > 0 {
		err = kit.InitMqtt()
		if err != nil {
			log.Warn("failed to init mqtt", "err", err)
		}
	}

	if len(kit.HkPin) == 8 {
		log.Info("starting with HomeKit server")
		go kit.StartTicker(ctx, syncDuration)
		log.Fatal(kit.StartHomeKit(ctx, Version))
	} else {
		log.Info("HomeKit not configured, disabled")
		kit.StartTicker(ctx, syncDuration)
	}
}
