package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/GigFlow/settlement-node/internal/config"
	"gitlab.com/GigFlow/settlement-node/internal/factory"
	"gitlab.com/GigFlow/settlement-node/internal/handlers/httphandlers"
	"gitlab.com/GigFlow/settlement-node/internal/ledger"
	"gitlab.com/GigFlow/settlement-node/internal/lib"
	"gitlab.com/GigFlow/settlement-node/internal/reputation"
	"gitlab.com/GigFlow/settlement-node/internal/repositories/store"
	"gitlab.com/GigFlow/settlement-node/internal/wallet"
	"golang.org/x/sync/errgroup"
)

func main() {
	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		panic(err)
	}

	logFilePath := ""
	if cfg.Log.FolderPath != "" {
		logFilePath = cfg.Log.FolderPath + "/settlement-node.log"
	}

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, logFilePath)
	if err != nil {
		panic(err)
	}

	httpLog, err := lib.NewLogger(cfg.Log.LevelHTTP, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, logFilePath)
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = log.Sync()
	}()

	log.Infof("settlement node %s starting", config.BuildVersion)

	var authorityWallet *wallet.AuthorityWallet
	if cfg.Authority.Mnemonic != "" {
		authorityWallet, err = wallet.NewAuthorityWalletFromMnemonic(cfg.Authority.Mnemonic, cfg.Authority.AccountIndex)
	} else {
		authorityWallet, err = wallet.NewAuthorityWalletFromPrivateKey(cfg.Authority.PrivateKey)
	}
	if err != nil {
		log.Fatalf("cannot load authority wallet: %s", err)
	}
	authority := authorityWallet.GetAccountAddress()
	log.Infof("platform authority %s", authority.Hex())

	st, err := store.Open(cfg.DB.Path, log.Named("STORE"))
	if err != nil {
		log.Fatalf("cannot open settlement database: %s", err)
	}
	defer func() {
		_ = st.Close()
	}()

	bank := ledger.NewBank(log.Named("LEDGER"))
	registry := reputation.NewRegistry(authority, log.Named("REPUTATION"))

	// factory address derives from the authority so escrow addresses are
	// reproducible across restarts
	factoryAddr := crypto.CreateAddress(authority, 0)
	projectFactory := factory.NewProjectFactory(factoryAddr, bank, registry, st, cfg.Events.FeedSize, log.Named("FACTORY"))

	publicUrl, err := url.Parse(cfg.Web.PublicUrl)
	if err != nil {
		log.Fatalf("invalid public url: %s", err)
	}

	handl := httphandlers.NewHTTPHandler(projectFactory, registry, bank, st, authority, publicUrl, &cfg, httpLog)

	server := &http.Server{
		Addr:    cfg.Web.Address,
		Handler: handl,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("received signal: %s. forcing exit...", s)
		os.Exit(1)
	}()

	g, errCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("http server is listening: http://%s", cfg.Web.Address)
		return server.ListenAndServe()
	})

	g.Go(func() error {
		<-errCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil && err != http.ErrServerClosed {
		log.Errorf("node exited with error: %s", err)
	}
	log.Info("settlement node stopped")
}
