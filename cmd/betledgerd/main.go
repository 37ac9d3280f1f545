// Command betledgerd starts a wagering ledger node.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/euphoria-gg/betledger/archive"
	"github.com/euphoria-gg/betledger/config"
	"github.com/euphoria-gg/betledger/engine"
	"github.com/euphoria-gg/betledger/events"
	"github.com/euphoria-gg/betledger/gateway"
	"github.com/euphoria-gg/betledger/indexer"
	"github.com/euphoria-gg/betledger/notify"
	"github.com/euphoria-gg/betledger/rpc"
	"github.com/euphoria-gg/betledger/storage"
	"github.com/euphoria-gg/betledger/token"
	"github.com/euphoria-gg/betledger/wallet"

	// Import op modules to trigger their init() self-registration.
	_ "github.com/euphoria-gg/betledger/engine/modules/betting"
	_ "github.com/euphoria-gg/betledger/engine/modules/matches"
	_ "github.com/euphoria-gg/betledger/engine/modules/settlement"
	_ "github.com/euphoria-gg/betledger/engine/modules/vault"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	keyPath := flag.String("key", "betledger.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new key and exit")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("BETLEDGER_PASSWORD")
	if password == "" {
		log.Println("WARNING: BETLEDGER_PASSWORD not set — keystore will use an empty password")
	}

	// ---- generate key mode ----
	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated key. Public key: %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	// ---- load config ----
	cfg, err := config.LoadAndValidate(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- open DB ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}
	db, err := storage.NewLevelDB(cfg.DataDir + "/ledger")
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// ---- initialise state ----
	state := storage.NewStateDB(db)
	if err := state.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// ---- tokens ----
	bank := token.NewBank()
	for _, tc := range cfg.Tokens {
		tok := token.NewStateToken(tc.Address, state)
		bank.Register(tc.Address, tok)

		// Genesis allocation: minted once, on the token's first appearance.
		supply, err := tok.TotalSupply()
		if err != nil {
			log.Fatalf("token %s: %v", tc.Address, err)
		}
		if supply == 0 && len(tc.Alloc) > 0 {
			for account, amount := range tc.Alloc {
				if err := tok.Mint(account, amount); err != nil {
					log.Fatalf("token %s genesis mint: %v", tc.Address, err)
				}
			}
			log.Printf("Token %s: genesis allocation minted (%d accounts)", tc.Address, len(tc.Alloc))
		}
	}
	if err := state.Commit(); err != nil {
		log.Fatalf("commit genesis: %v", err)
	}

	// ---- events ----
	emitter := events.NewEmitter()

	// ---- indexer ----
	idx := indexer.New(db, emitter)

	// ---- archive ----
	if cfg.ArchiveURL != "" {
		arc, err := archive.Open(cfg.ArchiveURL)
		if err != nil {
			log.Fatalf("archive: %v", err)
		}
		defer arc.Close()
		if err := arc.Migrate(); err != nil {
			log.Fatalf("archive migrate: %v", err)
		}
		arc.Attach(emitter)
		log.Println("Archive enabled")
	}

	// ---- notifications ----
	if cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
		defer pub.Close()
		pub.Attach(emitter)
		log.Printf("AMQP notifications enabled (exchange %s)", cfg.AMQPExchange)
	}

	// ---- engine ----
	eng := engine.New(state, emitter, bank, cfg.Custody)
	if err := eng.Init(cfg.Owner); err != nil {
		log.Fatalf("engine init: %v", err)
	}
	log.Printf("Ledger owner: %s", cfg.Owner)

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(eng, idx)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", rpcAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}

	// ---- gateway ----
	hub := gateway.NewHub()
	hub.Attach(emitter)
	gwAddr := fmt.Sprintf(":%d", cfg.GatewayPort)
	gw := gateway.NewServer(gwAddr, eng, idx, hub)
	if err := gw.Start(); err != nil {
		log.Fatalf("gateway start: %v", err)
	}
	defer gw.Stop()
	log.Printf("Gateway listening on %s", gwAddr)

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	// Deferred calls run in LIFO: gw.Stop → rpcServer.Stop → sinks → db.Close
	log.Println("Shutdown complete.")
}
