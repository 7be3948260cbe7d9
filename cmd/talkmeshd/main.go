// talkmeshd runs one chat server process of a fleet: room registry,
// peer mesh, player gateway and command surface.
package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"talkmesh/internal/command"
	"talkmesh/internal/config"
	"talkmesh/internal/gateway"
	"talkmesh/internal/mesh"
	"talkmesh/internal/models"
	"talkmesh/internal/registry"
	"talkmesh/internal/service"
	"talkmesh/internal/storage"
)

type options struct {
	ConfigPath string `env:"TALKMESH_CONFIG" envDefault:"config.yml"`
	DataDir    string `env:"TALKMESH_DATA_DIR" envDefault:"."`
}

func main() {
	var opts options
	if err := env.Parse(&opts); err != nil {
		log.Fatalf("parse environment: %v", err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Printf("========================================")
	log.Printf("  talkmesh - cross-server room chat")
	log.Printf("  server: %s (%s)", cfg.ServerName(), cfg.ServerID())
	log.Printf("========================================")

	store, err := storage.Open(filepath.Join(opts.DataDir, "talkmesh.db"))
	if err != nil {
		log.Printf("room persistence unavailable: %v", err)
		store = nil
	}

	reg := registry.New(cfg)
	if !reg.CreateRoom(cfg.DefaultRoomName(), models.SystemOwner, true) {
		log.Fatalf("could not create default room %q", cfg.DefaultRoomName())
	}
	restoreRooms(reg, store)

	var svcStore service.RoomStore
	if store != nil {
		svcStore = store
	}
	svc := service.New(cfg, reg, svcStore)

	var m *mesh.Mesh
	var meshCtl command.MeshControl
	if cfg.NetworkEnabled() {
		m = mesh.New(cfg, svc)
		svc.SetMesh(m)
		meshCtl = m
		m.Start()
	} else {
		log.Printf("networking disabled by configuration")
	}

	perms := func(player string, cap command.Capability) bool {
		if cap == command.CapAdmin {
			return cfg.IsAdmin(player)
		}
		return true
	}
	cmds := command.New(cfg, reg, svc, meshCtl, perms)

	var gw *gateway.Gateway
	if cfg.GatewayEnabled() {
		gw = gateway.New(cfg, svc, cmds)
		svc.SetSink(gw)
		gw.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Printf("shutting down")

	if gw != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		gw.Stop(shutdownCtx)
		cancel()
	}
	if m != nil {
		m.Stop()
	}
	reg.Clear()
	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
	log.Printf("shutdown complete")
}

// restoreRooms re-creates persisted user rooms after the default room
// exists, so a restart keeps the fleet's room list stable.
func restoreRooms(reg *registry.Registry, store *storage.Store) {
	if store == nil {
		return
	}
	records, err := store.LoadRooms()
	if err != nil {
		log.Printf("load persisted rooms: %v", err)
		return
	}
	restored := 0
	for _, rec := range records {
		if reg.RestoreRoom(rec.Name, rec.Owner, rec.Description, rec.MaxMembers) {
			restored++
		}
	}
	if restored > 0 {
		log.Printf("restored %d persisted rooms", restored)
	}
}
