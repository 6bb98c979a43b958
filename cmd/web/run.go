package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"vectortube/internal/admin"
	"vectortube/internal/catalog"
	"vectortube/internal/config"
	"vectortube/internal/enquiry"
	"vectortube/internal/logging"
	"vectortube/internal/mail"
	"vectortube/internal/storage"
	"vectortube/internal/web"
)

func run(ctx context.Context, cfg *config.Config) (err error) {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("creating catalog store", zap.String("type", cfg.Catalog.Type))
	records, err := newRecordStore(cfg.Catalog, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, records.Close()) }()

	log.Info("creating enquiry store", zap.String("type", cfg.Enquiries.Type))
	enquiries, err := newEnquiryStore(cfg.Enquiries)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, enquiries.Close()) }()

	mailer, err := newMailer(cfg.Mail, log)
	if err != nil {
		return err
	}

	assets := storage.NewFSAssetStore(cfg.Storage.Root)
	catalogService, err := catalog.NewService(catalog.Config{
		StorageRoot:  cfg.Storage.Root,
		AllowedTypes: cfg.Storage.AllowedTypes,
		URLPrefix:    cfg.Storage.URLPrefix,
	}, records, assets, log)
	if err != nil {
		return err
	}

	enquiryService, err := enquiry.NewService(enquiries, mailer, enquiry.Options{
		AdminEmail: cfg.Mail.AdminEmail,
		TeamName:   cfg.Mail.TeamName,
	}, log)
	if err != nil {
		return err
	}

	if cfg.Storage.Watch {
		watcher, werr := storage.NewWatcher(cfg.Storage.Root, log)
		if werr != nil {
			return werr
		}
		defer func() { err = multierr.Append(err, watcher.Close()) }()
		go watchStorage(ctx, watcher, catalogService, log)
	}

	if cfg.Admin.Addr != "" {
		grpcServer, err := serveAdmin(cfg, catalogService, enquiryService, log)
		if err != nil {
			return err
		}
		defer grpcServer.GracefulStop()
	}

	server := web.NewServer(catalogService, enquiryService, assets, web.Options{
		TrustProxy:     cfg.Server.TrustProxy,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		JWTSecret:      cfg.Admin.JWTSecret,
	}, log)

	listenAddr := cfg.Addr()
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}
	log.Info("starting web server", zap.String("addr", listenAddr))

	return server.Start(ctx, lis)
}

// watchStorage reports records whose thumbnail is deleted out of band.
func watchStorage(ctx context.Context, watcher *storage.Watcher, catalogService *catalog.Service, log *zap.Logger) {
	err := watcher.Run(ctx, func(ref string) {
		if _, err := catalogService.CheckRemoved(ctx, ref); err != nil {
			log.Warn("failed to check removed thumbnail", zap.String("ref", ref), zap.Error(err))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("storage watcher stopped", zap.Error(err))
	}
}

func serveAdmin(cfg *config.Config, catalogService *catalog.Service, enquiryService *enquiry.Service, log *zap.Logger) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", cfg.Admin.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on admin gRPC port: %w", err)
	}
	if cfg.Admin.JWTSecret == "" {
		log.Warn("admin gRPC is unauthenticated; set admin.jwt_secret to require a token")
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(admin.AuthInterceptor(cfg.Admin.JWTSecret)))
	admin.RegisterCatalogAdminServer(grpcServer, admin.NewServer(catalogService, enquiryService, cfg.Reconcile.Grace, log))

	go func() {
		log.Info("admin gRPC listening", zap.String("addr", cfg.Admin.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("admin gRPC server error", zap.Error(err))
		}
	}()
	return grpcServer, nil
}

func newRecordStore(sc config.StoreConfig, log *zap.Logger) (catalog.RecordStore, error) {
	switch sc.Type {
	case "sqlite":
		return catalog.NewSQLiteRecordStore(sc.Options)
	case "postgres":
		return catalog.NewPostgresRecordStore(sc.Options)
	case "etcd":
		return catalog.NewEtcdRecordStore(sc.EtcdEndpoints(), sc.EtcdPrefix, log)
	case "memory":
		return catalog.NewMemoryRecordStore(), nil
	default:
		return nil, fmt.Errorf("unsupported catalog type: %s", sc.Type)
	}
}

func newEnquiryStore(sc config.StoreConfig) (enquiry.Store, error) {
	switch sc.Type {
	case "sqlite":
		return enquiry.NewSQLiteStore(sc.Options)
	case "postgres":
		return enquiry.NewPostgresStore(sc.Options)
	case "memory":
		return enquiry.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported enquiries type: %s", sc.Type)
	}
}

func newMailer(mc config.MailConfig, log *zap.Logger) (mail.Mailer, error) {
	if !mc.Enabled {
		return mail.NewLogMailer(log), nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     mc.Host,
		Port:     mc.Port,
		Username: mc.Username,
		Password: mc.Password,
		From:     mc.From,
	})
}
