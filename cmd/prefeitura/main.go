package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agendacidade/api/internal/db"
	"github.com/agendacidade/api/internal/prefeitura"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	repo := prefeitura.NewRepository(pool)
	service := prefeitura.NewService(repo)

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		if err := runCreate(ctx, service, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar prefeitura")
		}
	case "list":
		if err := runList(ctx, service); err != nil {
			log.Fatal().Err(err).Msg("falha ao listar prefeituras")
		}
	case "ativar":
		if err := runSetAtivo(ctx, service, args, true); err != nil {
			log.Fatal().Err(err).Msg("falha ao ativar prefeitura")
		}
	case "desativar":
		if err := runSetAtivo(ctx, service, args, false); err != nil {
			log.Fatal().Err(err).Msg("falha ao desativar prefeitura")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "prefeitura CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  prefeitura create --slug zabele --nome \"Prefeitura de Zabelê\" [--settings-file settings.json]")
	fmt.Fprintln(os.Stderr, "  prefeitura create --slug zabele --nome \"Prefeitura de Zabelê\" --settings '{\\\"corPrimaria\\\":\\\"#123456\\\"}'")
	fmt.Fprintln(os.Stderr, "  prefeitura list")
	fmt.Fprintln(os.Stderr, "  prefeitura ativar --id <uuid>")
	fmt.Fprintln(os.Stderr, "  prefeitura desativar --id <uuid>")
}

func runCreate(ctx context.Context, service *prefeitura.Service, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		slug         = fs.String("slug", "", "slug da prefeitura (ex.: zabele)")
		nome         = fs.String("nome", "", "nome exibido")
		settingsFile = fs.String("settings-file", "", "arquivo JSON com configurações visuais")
		settingsJSON = fs.String("settings", "", "JSON literal com configurações visuais")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *slug == "" || *nome == "" {
		return errors.New("slug e nome são obrigatórios")
	}

	settings := map[string]any{}
	if *settingsFile != "" {
		raw, err := os.ReadFile(*settingsFile)
		if err != nil {
			return fmt.Errorf("ler settings-file: %w", err)
		}
		if err := json.Unmarshal(raw, &settings); err != nil {
			return fmt.Errorf("parse settings-file: %w", err)
		}
	} else if *settingsJSON != "" {
		if err := json.Unmarshal([]byte(*settingsJSON), &settings); err != nil {
			return fmt.Errorf("parse settings: %w", err)
		}
	}

	created, err := service.Create(ctx, prefeitura.CreateInput{
		Slug:     *slug,
		Nome:     *nome,
		Settings: settings,
	})
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(created, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runList(ctx context.Context, service *prefeitura.Service) error {
	prefeituras, err := service.List(ctx)
	if err != nil {
		return err
	}

	if len(prefeituras) == 0 {
		fmt.Println("nenhuma prefeitura cadastrada")
		return nil
	}

	encoded, _ := json.MarshalIndent(prefeituras, "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func runSetAtivo(ctx context.Context, service *prefeitura.Service, args []string, ativo bool) error {
	fs := flag.NewFlagSet("ativo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	id := fs.String("id", "", "id da prefeitura")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := uuid.Parse(*id)
	if err != nil {
		return errors.New("id inválido")
	}

	if err := service.SetAtivo(ctx, parsed, ativo); err != nil {
		return err
	}

	fmt.Printf("prefeitura %s: ativo=%t\n", parsed, ativo)
	return nil
}
