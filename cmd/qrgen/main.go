// qrgen prints a transfer payload for a one-off amount and writes its PNG.
// Usage: go run ./cmd/qrgen -holder "BREW SHOP" -amount 45000 -desc "Latte M x1" -out qr.png
package main

import (
	"flag"
	"fmt"
	"os"

	"brewpos/internal/infra"
	"brewpos/internal/model"
	"brewpos/internal/vietqr"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	holder := flag.String("holder", "", "account holder shown to the payer")
	amount := flag.String("amount", "", "amount in VND")
	desc := flag.String("desc", "", "transfer description, folded to ASCII")
	out := flag.String("out", "qr.png", "PNG output path, empty to skip")
	size := flag.Int("size", infra.DefaultQRSize, "PNG edge length in pixels")
	flag.Parse()

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Str("amount", *amount).Msg("invalid amount")
	}

	payload, err := vietqr.Encode(&model.PaymentProfile{AccountHolder: *holder}, amt, vietqr.Fold(*desc))
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build payload")
	}
	fmt.Println(payload)

	if *out == "" {
		return
	}
	png, err := infra.QRPNG(payload, *size)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot render QR")
	}
	if err := os.WriteFile(*out, png, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *out).Msg("cannot write PNG")
	}
	log.Info().Str("path", *out).Msg("QR written")
}
