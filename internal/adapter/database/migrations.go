package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migration é uma migração SQL já aplicada
type Migration struct {
	ID        uint  `gorm:"primaryKey"`
	Version   int64 `gorm:"uniqueIndex"`
	Name      string
	AppliedAt time.Time
}

// TableName define o nome da tabela
func (Migration) TableName() string {
	return "schema_migrations"
}

// MigrationFile é um arquivo YYYYMMDDHHMMSS_nome.sql encontrado no diretório
type MigrationFile struct {
	Version int64
	Name    string
	Path    string
}

// MigrationManager aplica arquivos .sql versionados em ordem
type MigrationManager struct {
	db        *gorm.DB
	logger    *zap.Logger
	directory string
}

// NewMigrationManager cria um novo gerenciador de migrações
func NewMigrationManager(db *gorm.DB, logger *zap.Logger, directory string) *MigrationManager {
	return &MigrationManager{
		db:        db,
		logger:    logger,
		directory: directory,
	}
}

// ApplyMigrations aplica as migrações pendentes, cada uma na sua transação
func (m *MigrationManager) ApplyMigrations(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("falha ao criar tabela de migrações: %w", err)
	}

	var applied []Migration
	if err := m.db.WithContext(ctx).Order("version").Find(&applied).Error; err != nil {
		return fmt.Errorf("falha ao buscar migrações aplicadas: %w", err)
	}
	appliedVersions := make(map[int64]bool, len(applied))
	for _, migration := range applied {
		appliedVersions[migration.Version] = true
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return fmt.Errorf("falha ao listar arquivos de migração: %w", err)
	}

	for _, file := range files {
		if appliedVersions[file.Version] {
			continue
		}

		m.logger.Info("Aplicando migração", zap.Int64("version", file.Version), zap.String("name", file.Name))

		content, err := os.ReadFile(file.Path)
		if err != nil {
			return fmt.Errorf("falha ao ler arquivo de migração: %w", err)
		}

		err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, cmd := range splitSQLCommands(string(content)) {
				cmd = strings.TrimSpace(cmd)
				if cmd == "" {
					continue
				}
				if err := tx.Exec(cmd).Error; err != nil {
					return fmt.Errorf("falha ao executar migração %d: %w", file.Version, err)
				}
			}
			return tx.Create(&Migration{
				Version:   file.Version,
				Name:      file.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// splitSQLCommands divide o script em comandos por ';', ignorando
// ponto e vírgula dentro de strings e comentários
func splitSQLCommands(sql string) []string {
	var commands []string
	var current strings.Builder
	inString, inLineComment, inBlockComment := false, false, false

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		hasNext := i < len(sql)-1

		switch {
		case inLineComment:
			if ch == '\n' {
				inLineComment = false
				current.WriteByte(ch)
			}
			continue
		case inBlockComment:
			if ch == '*' && hasNext && sql[i+1] == '/' {
				inBlockComment = false
				current.WriteString("*/")
				i++
				continue
			}
		case inString:
			if ch == '\'' {
				inString = false
			}
		case ch == '-' && hasNext && sql[i+1] == '-':
			// comentários de linha são descartados
			inLineComment = true
			continue
		case ch == '/' && hasNext && sql[i+1] == '*':
			inBlockComment = true
		case ch == '\'':
			inString = true
		case ch == ';':
			current.WriteByte(ch)
			commands = append(commands, current.String())
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if last := strings.TrimSpace(current.String()); last != "" {
		commands = append(commands, last)
	}

	return commands
}

func (m *MigrationManager) findMigrationFiles() ([]MigrationFile, error) {
	var files []MigrationFile

	err := filepath.WalkDir(m.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
			return nil
		}

		parts := strings.SplitN(d.Name(), "_", 2)
		if len(parts) != 2 {
			m.logger.Warn("Formato de arquivo de migração inválido", zap.String("file", d.Name()))
			return nil
		}
		version, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			m.logger.Warn("Versão de migração inválida", zap.String("file", d.Name()))
			return nil
		}

		files = append(files, MigrationFile{
			Version: version,
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			Path:    path,
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		// diretório opcional
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})

	return files, nil
}

// CreateMigration cria um arquivo de migração vazio e devolve o caminho
func (m *MigrationManager) CreateMigration(name string) (string, error) {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	if name == "" {
		return "", errors.New("nome da migração é obrigatório")
	}

	if err := os.MkdirAll(m.directory, 0o755); err != nil {
		return "", fmt.Errorf("falha ao criar diretório: %w", err)
	}

	path := filepath.Join(m.directory, fmt.Sprintf("%s_%s.sql", time.Now().Format("20060102150405"), name))
	if err := os.WriteFile(path, []byte("-- "+name+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("falha ao criar arquivo: %w", err)
	}

	return path, nil
}
