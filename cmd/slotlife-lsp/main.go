// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"slotlife/internal/config"
	"slotlife/internal/lsp"
)

const lsName = "slotlife" // Name identifier for the language server

var handler protocol.Handler

func main() {
	// Configuration comes from the nearest slotlife.toml above the working directory
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		log.Println("Error loading configuration:", err)
		os.Exit(1)
	}

	// Log to stderr; stdout carries the protocol
	commonlog.Configure(cfg.Log.Verbosity, nil)

	bodyHandler := lsp.NewBodyHandler(cfg)

	handler = protocol.Handler{
		Initialize:                     bodyHandler.Initialize,
		Initialized:                    bodyHandler.Initialized,
		Shutdown:                       bodyHandler.Shutdown,
		SetTrace:                       bodyHandler.SetTrace,
		TextDocumentDidOpen:            bodyHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           bodyHandler.TextDocumentDidClose,
		TextDocumentDidChange:          bodyHandler.TextDocumentDidChange,
		TextDocumentSemanticTokensFull: bodyHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting slotlife LSP server...")

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting slotlife LSP server:", err)
		os.Exit(1)
	}
}
