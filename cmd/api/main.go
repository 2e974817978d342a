package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/diillson/calorie-api-go/internal/app"
	"github.com/diillson/calorie-api-go/pkg/config"
	"github.com/diillson/calorie-api-go/pkg/logging"
	"github.com/diillson/calorie-api-go/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

var tlsConfig = &tls.Config{
	MinVersion: tls.VersionTLS12,
}

// setupServer monta o servidor HTTP ou HTTPS conforme a configuração
func setupServer(router *gin.Engine, cfg *config.Config, logger *zap.Logger) *http.Server {
	base := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	if !cfg.Server.TLS || os.Getenv("ENV") == "development" {
		logger.Info("Iniciando em modo HTTP",
			zap.Bool("tls_disabled", !cfg.Server.TLS),
			zap.Int("port", cfg.Server.Port))
		return base
	}

	if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
		if fileExists(cfg.Server.CertFile) && fileExists(cfg.Server.KeyFile) {
			logger.Info("Usando certificados TLS fornecidos",
				zap.String("certFile", cfg.Server.CertFile),
				zap.String("keyFile", cfg.Server.KeyFile))
			base.Addr = ":443"
			base.TLSConfig = tlsConfig.Clone()
			go startHTTPRedirector(http.HandlerFunc(redirectHTTPS), logger)
			return base
		}
		logger.Error("Certificado ou chave não encontrados; tentando Let's Encrypt",
			zap.String("certFile", cfg.Server.CertFile),
			zap.String("keyFile", cfg.Server.KeyFile))
	}

	domains := cfg.Server.Domains
	if env := os.Getenv("SERVER_DOMAINS"); env != "" {
		domains = strings.Split(env, ",")
	}
	validDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.TrimSpace(domain)
		if domain != "" && domain != "localhost" && domain != "127.0.0.1" {
			validDomains = append(validDomains, domain)
		}
	}
	if len(validDomains) == 0 {
		logger.Warn("Nenhum domínio válido para Let's Encrypt, usando HTTP", zap.Strings("domains", domains))
		return base
	}

	certManager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(validDomains...),
		Cache:      autocert.DirCache("./certs"),
		Email:      os.Getenv("LETSENCRYPT_EMAIL"),
	}

	base.Addr = ":443"
	base.TLSConfig = tlsConfig.Clone()
	base.TLSConfig.GetCertificate = certManager.GetCertificate

	// desafios HTTP-01 e redirecionamento para HTTPS
	go startHTTPRedirector(certManager.HTTPHandler(http.HandlerFunc(redirectHTTPS)), logger)

	logger.Info("Servidor HTTPS com Let's Encrypt configurado", zap.Strings("domains", validDomains))
	return base
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// startHTTPRedirector inicia o servidor da porta 80
func startHTTPRedirector(handler http.Handler, logger *zap.Logger) {
	httpServer := &http.Server{
		Addr:              ":80",
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Iniciando servidor HTTP de redirecionamento", zap.String("addr", httpServer.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Erro no servidor HTTP de redirecionamento", zap.Error(err))
	}
}

// redirectHTTPS redireciona HTTP -> HTTPS
func redirectHTTPS(w http.ResponseWriter, r *http.Request) {
	target := "https://" + r.Host + r.URL.Path
	if len(r.URL.RawQuery) > 0 {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

func main() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Erro ao carregar configuração: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Erro ao inicializar logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Tracing, logger)
		if err != nil {
			logger.Error("Falha ao inicializar tracer", zap.Error(err))
		} else {
			logger.Info("Tracer inicializado", zap.String("endpoint", cfg.Tracing.Endpoint))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tp.Shutdown(shutdownCtx)
			}()
		}
	}

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Falha ao inicializar aplicação", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("Erro ao liberar recursos", zap.Error(err))
		}
	}()

	if os.Getenv("ENV") != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	application.RegisterRoutes(router)

	server := setupServer(router, cfg, logger)

	serverErr := make(chan error, 1)
	go func() {
		var err error
		switch {
		case server.TLSConfig == nil:
			logger.Info("Iniciando servidor HTTP", zap.String("addr", server.Addr))
			err = server.ListenAndServe()
		case server.TLSConfig.GetCertificate != nil:
			logger.Info("Iniciando servidor HTTPS com Let's Encrypt", zap.String("addr", server.Addr))
			err = server.ListenAndServeTLS("", "")
		default:
			logger.Info("Iniciando servidor HTTPS", zap.String("addr", server.Addr))
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("Erro ao iniciar servidor", zap.Error(err))
	}

	logger.Info("Encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Erro ao encerrar servidor", zap.Error(err))
		return
	}

	logger.Info("Servidor encerrado com sucesso")
}
