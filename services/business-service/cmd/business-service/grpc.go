package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/slotbook/slotbook/libs/grpcx"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
	"github.com/slotbook/slotbook/services/business-service/internal/grpcserver"
)

// serveGRPC exposes the catalog to booking-service until ctx is cancelled.
func serveGRPC(ctx context.Context, logger *slog.Logger, addr string, c *catalog.Catalog) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := grpcx.NewServer()
	grpcserver.Register(srv, c)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	logger.Info("grpc server starting", "addr", addr)
	if err := srv.Serve(lis); err != nil {
		logger.Error("grpc server error", "err", err)
		return err
	}
	logger.Info("grpc server stopped")
	return nil
}
