package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diillson/calorie-api-go/internal/adapter/database"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/domain/repository"
	"github.com/diillson/calorie-api-go/pkg/config"
	"github.com/diillson/calorie-api-go/pkg/security"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var (
		email      string
		password   string
		name       string
		surname    string
		expected   int
		configPath string
		dbDriver   string
		dbDSN      string
		force      bool
		verbose    bool
	)

	flag.StringVar(&email, "email", "", "Email do admin")
	flag.StringVar(&password, "password", "", "Senha do admin")
	flag.StringVar(&name, "name", "Admin", "Nome do admin")
	flag.StringVar(&surname, "surname", "", "Sobrenome do admin")
	flag.IntVar(&expected, "expected", 2000, "Meta diária de calorias")
	flag.StringVar(&configPath, "config", "", "Diretório do config.yaml")
	flag.StringVar(&dbDriver, "driver", "", "Driver do banco de dados; sobrescreve a configuração")
	flag.StringVar(&dbDSN, "dsn", "", "DSN do banco de dados; sobrescreve a configuração")
	flag.BoolVar(&force, "force", false, "Sobrescrever conta existente sem perguntar")
	flag.BoolVar(&verbose, "verbose", false, "Mostrar logs detalhados")
	flag.Parse()

	if email == "" || password == "" {
		fmt.Println("Erro: email e password não podem ser vazios.")
		flag.Usage()
		os.Exit(1)
	}
	if expected <= 0 {
		fmt.Println("Erro: expected deve ser maior que zero.")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Erro ao carregar configuração: %v\n", err)
		os.Exit(1)
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	if len(password) < cfg.Auth.PasswordMinLen {
		fmt.Printf("Erro: a senha precisa ter ao menos %d caracteres.\n", cfg.Auth.PasswordMinLen)
		os.Exit(1)
	}

	zapCfg := zap.NewProductionConfig()
	if !verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		zapCfg.OutputPaths = []string{"stderr"}
	}
	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Printf("Erro ao inicializar logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
		LogLevel:        database.ParseLogLevel("error"),
		SlowThreshold:   cfg.Database.SlowThreshold,
		MigrationDir:    cfg.Database.MigrationDir,
		SkipMigrations:  cfg.Database.SkipMigrations,
	}, logger)
	if err != nil {
		fmt.Printf("Erro ao conectar ao banco de dados: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	hash, err := security.HashPassword(password)
	if err != nil {
		fmt.Printf("Erro ao processar senha: %v\n", err)
		os.Exit(1)
	}

	admin := &model.User{
		Email:                  email,
		Name:                   name,
		Surname:                surname,
		PasswordHash:           hash,
		Role:                   model.RoleAdmin,
		ExpectedCaloriesPerDay: expected,
	}

	store := database.NewStore(db.DB(), logger)

	isUpdate := false
	_, err = store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		isUpdate = true
		if !force {
			fmt.Printf("Conta '%s' já existe. Deseja sobrescrevê-la? (s/n): ", email)
			var response string
			_, _ = fmt.Scanln(&response)
			if response != "s" && response != "S" {
				fmt.Println("Operação cancelada pelo usuário.")
				os.Exit(0)
			}
		}
		err = store.Users().Update(ctx, admin)
	case errors.Is(err, repository.ErrUserNotFound):
		err = store.Users().Create(ctx, admin)
	}
	if err != nil {
		fmt.Printf("Erro ao salvar conta: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n╭──────────────────────────────────────────╮")
	if isUpdate {
		fmt.Println("│      Conta admin atualizada com sucesso    │")
	} else {
		fmt.Println("│        Conta admin criada com sucesso      │")
	}
	fmt.Println("├──────────────────────────────────────────┤")
	fmt.Printf("│ Email: %-33s │\n", email)
	fmt.Printf("│ Meta diária: %-27d │\n", expected)
	fmt.Printf("│ Role: %-34s │\n", model.RoleAdmin)
	fmt.Println("╰──────────────────────────────────────────╯")
	fmt.Println("\nGere um token de acesso com:")
	fmt.Printf("go run ./cmd/tools/gentoken -email=%s\n\n", email)
}
