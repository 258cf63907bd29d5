package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/btorressz/otc-pool/config"
	"github.com/btorressz/otc-pool/native/otc"
	"github.com/btorressz/otc-pool/observability"
	"github.com/btorressz/otc-pool/observability/logging"
	"github.com/btorressz/otc-pool/state"
	"github.com/btorressz/otc-pool/storage"
)

type poolView struct {
	ID                string   `json:"id"`
	Authority         string   `json:"authority"`
	Treasury          string   `json:"treasury"`
	MaxPartners       uint8    `json:"maxPartners"`
	FeeBps            uint32   `json:"feeBps"`
	MinSwapAmount     string   `json:"minSwapAmount"`
	MaxExpirationSecs int64    `json:"maxExpirationSecs"`
	WhitelistedMints  []string `json:"whitelistedMints"`
	Partners          []string `json:"partners"`
	Paused            bool     `json:"paused"`
}

func viewOf(pool *otc.Pool) poolView {
	partners := make([]string, 0, len(pool.Partners))
	for _, partner := range pool.Partners {
		partners = append(partners, hex.EncodeToString(partner[:]))
	}
	return poolView{
		ID:                hex.EncodeToString(pool.ID[:]),
		Authority:         hex.EncodeToString(pool.Authority[:]),
		Treasury:          hex.EncodeToString(pool.Treasury[:]),
		MaxPartners:       pool.MaxPartners,
		FeeBps:            pool.FeeBps,
		MinSwapAmount:     pool.MinSwapAmount.String(),
		MaxExpirationSecs: pool.MaxExpirationSecs,
		WhitelistedMints:  pool.WhitelistedMints,
		Partners:          partners,
		Paused:            pool.Paused,
	}
}

func ensureGenesisPool(engine *otc.Engine, genesis *config.GenesisPool) ([32]byte, error) {
	authority, err := config.ParseAddress(genesis.Authority)
	if err != nil {
		return [32]byte{}, err
	}
	treasury, err := config.ParseAddress(genesis.Treasury)
	if err != nil {
		return [32]byte{}, err
	}
	minAmount, err := genesis.MinAmount()
	if err != nil {
		return [32]byte{}, err
	}
	nonce := genesis.NonceBytes()
	poolID := otc.PoolID(authority, nonce)
	if _, err := engine.Pool(poolID); err == nil {
		return poolID, nil
	} else if !errors.Is(err, otc.ErrNotFound) {
		return [32]byte{}, err
	}
	if _, err := engine.InitializePool(authority, nonce, genesis.MaxPartners, genesis.FeeBps, treasury, minAmount, genesis.MaxExpirationSecs, genesis.WhitelistedMints); err != nil {
		return [32]byte{}, err
	}
	for _, raw := range genesis.Partners {
		partner, err := config.ParseAddress(raw)
		if err != nil {
			return [32]byte{}, err
		}
		if err := engine.AddPartner(poolID, authority, partner); err != nil && !errors.Is(err, otc.ErrAlreadyExists) {
			return [32]byte{}, err
		}
	}
	return poolID, nil
}

func run() error {
	configPath := flag.String("config", "otcd.toml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("otcd", cfg.Environment)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	engine := otc.NewEngine()
	engine.SetState(state.NewPoolState(db))
	engine.SetEmitter(observability.MetricsEmitter{})

	poolID, err := ensureGenesisPool(engine, &cfg.Genesis)
	if err != nil {
		return fmt.Errorf("ensure genesis pool: %w", err)
	}
	logger.Info("pool ready", "poolId", hex.EncodeToString(poolID[:]))

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/v1/pool", func(w http.ResponseWriter, r *http.Request) {
		pool, err := engine.Pool(poolID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(viewOf(pool))
	})
	router.Get("/v1/offers/{id}", func(w http.ResponseWriter, r *http.Request) {
		raw, err := hex.DecodeString(chi.URLParam(r, "id"))
		if err != nil || len(raw) != 32 {
			http.Error(w, "invalid offer id", http.StatusBadRequest)
			return
		}
		var offerID [32]byte
		copy(offerID[:], raw)
		offer, err := engine.Offer(offerID)
		if errors.Is(err, otc.ErrNotFound) {
			http.Error(w, "offer not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(offer)
	})
	router.Handle("/metrics", promhttp.Handler())

	logger.Info("listening", "address", cfg.ListenAddress)
	return http.ListenAndServe(cfg.ListenAddress, router)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "otcd: %v\n", err)
		os.Exit(1)
	}
}
