package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diillson/calorie-api-go/internal/adapter/database"
	"github.com/diillson/calorie-api-go/pkg/config"
	"github.com/diillson/calorie-api-go/pkg/security"
	"go.uber.org/zap"
)

func main() {
	var (
		email      string
		configPath string
		expiration time.Duration
	)

	flag.StringVar(&email, "email", "", "Email da conta")
	flag.StringVar(&configPath, "config", "", "Diretório do config.yaml")
	flag.DurationVar(&expiration, "expiration", 0, "Validade do token; padrão da configuração quando zero")
	flag.Parse()

	if email == "" {
		fmt.Println("Erro: o email da conta não pode ser vazio.")
		fmt.Println("Uso: go run ./cmd/tools/gentoken -email=<email>")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Erro ao carregar configuração: %v\n", err)
		os.Exit(1)
	}
	if expiration == 0 {
		expiration = cfg.Auth.TokenExpiration
	}

	logger := zap.NewNop()
	ctx := context.Background()

	db, err := database.NewDatabase(ctx, database.Config{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.DSN,
		MaxOpenConns:   1,
		LogLevel:       database.ParseLogLevel("silent"),
		SkipMigrations: true,
	}, logger)
	if err != nil {
		fmt.Printf("Erro ao conectar ao banco de dados: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// o token carrega o papel armazenado
	user, err := database.NewStore(db.DB(), logger).Users().GetByEmail(ctx, email)
	if err != nil {
		fmt.Printf("Erro ao buscar conta '%s': %v\n", email, err)
		os.Exit(1)
	}

	km, err := security.NewKeyManager(security.ResolveJWTSecret(cfg.Auth.JWTSecret, logger), expiration, logger)
	if err != nil {
		fmt.Printf("Erro ao criar gerenciador de chaves: %v\n", err)
		os.Exit(1)
	}

	token, err := km.GenerateToken(user.Email, user.Role.String())
	if err != nil {
		fmt.Printf("Erro ao gerar token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nToken JWT gerado:")
	fmt.Println("------------------------------------------")
	fmt.Println(token)
	fmt.Println("------------------------------------------")
	fmt.Printf("\nEmail: %s\n", user.Email)
	fmt.Printf("Papel: %s\n", user.Role)
	fmt.Printf("Expira em: %s\n", time.Now().Add(expiration).Format(time.RFC3339))
	fmt.Println("\nUse este token no cabeçalho Authorization:")
	fmt.Printf("Authorization: Bearer %s\n", token)
}
