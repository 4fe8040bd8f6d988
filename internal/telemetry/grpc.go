// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package telemetry

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// CollectorMethod is the unary RPC that accepts a report as a
// google.protobuf.Struct and returns google.protobuf.Empty.
const CollectorMethod = "/formplay.telemetry.Collector/Report"

// GRPCReporter sends reports to a remote collector.
type GRPCReporter struct {
	conn  *grpc.ClientConn
	token func() string
}

// DialGRPC creates a client for the collector at addr. TLS is used unless
// plaintext is set; a missing port defaults to 443. The connection is
// established lazily on the first report.
func DialGRPC(addr string, plaintext bool, token func() string, opts ...grpc.DialOption) (*GRPCReporter, error) {
	target := addr
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	} else if !plaintext {
		target = net.JoinHostPort(addr, "443")
	}

	creds := insecure.NewCredentials()
	if !plaintext {
		creds = credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry collector %s: %w", addr, err)
	}
	return &GRPCReporter{conn: conn, token: token}, nil
}

func (g *GRPCReporter) Report(ctx context.Context, r Report) error {
	st, err := structpb.NewStruct(r.Fields())
	if err != nil {
		return err
	}
	if g.token != nil {
		if t := g.token(); t != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+t)
		}
	}
	return g.conn.Invoke(ctx, CollectorMethod, st, &emptypb.Empty{})
}

func (g *GRPCReporter) Close() error { return g.conn.Close() }
