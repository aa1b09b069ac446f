// Command example imports two products into an Odoo quotation, confirms it and
// prints the sales count of the first product as seen by a salesman.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ilcreatore32/salelink"
	"github.com/ilcreatore32/salelink/odoo"
	"go.uber.org/zap"
)

func main() {
	odooURL := os.Getenv("ODOO_URL")
	odooDB := os.Getenv("ODOO_DB")
	odooUsername := os.Getenv("ODOO_USERNAME")
	odooPassword := os.Getenv("ODOO_PASSWORD")
	orderID, _ := strconv.ParseInt(os.Getenv("ODOO_ORDER_ID"), 10, 64)
	productID, _ := strconv.ParseInt(os.Getenv("ODOO_PRODUCT_ID"), 10, 64)

	if odooURL == "" || odooDB == "" || odooUsername == "" || odooPassword == "" || productID == 0 {
		log.Fatalf("Error: ODOO_URL, ODOO_DB, ODOO_USERNAME, ODOO_PASSWORD and ODOO_PRODUCT_ID must be set.\n" +
			"ODOO_ORDER_ID selects the quotation to import into; leave it empty to see the no-op outcome.")
	}

	appLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create application Zap logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	client, err := odoo.New(odooURL, odooDB, odooUsername, odooPassword,
		odoo.WithLoggerEnv(salelink.EnvDevelopment),
		odoo.WithAuthTimeout(3*time.Hour),
	)
	if err != nil {
		appLogger.Fatal("Failed to initialize Odoo client", zap.Error(err))
	}
	defer client.Close()
	backend := odoo.NewBackend(client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("\n--- Importing products into the quotation ---")
	importer := salelink.NewImporter(backend, backend, salelink.PriceLineDeriver{Prices: backend},
		salelink.WithLogger(appLogger))
	ws := importer.PrepareProducts(orderID, productID)
	if err := ws.SetQuantity(0, 3); err != nil {
		appLogger.Fatal("Failed to edit quantity", zap.Error(err))
	}

	outcome, err := importer.Commit(ctx, ws)
	switch {
	case errors.Is(err, odoo.ErrAuthenticationFailed):
		fmt.Println(">> Authentication failed! Please check Odoo credentials.")
		return
	case err != nil:
		fmt.Printf(">> Import failed: %v\n", err)
		return
	case outcome.IsNoOp():
		fmt.Printf(">> No active quotation, client action: %+v\n", odoo.CloseWindow())
		return
	}
	fmt.Printf("Created %d line(s), skipped %d.\n", outcome.LinesCreated(), outcome.Skipped)
	for _, line := range outcome.Lines {
		fmt.Printf("  #%d %s x%.2f @ %s\n", line.ID, line.Description, line.Quantity, line.PriceUnit)
	}

	fmt.Println("\n--- Confirming the quotation ---")
	if err := backend.ConfirmOrder(ctx, orderID); err != nil {
		fmt.Printf(">> Confirmation failed: %v\n", err)
		return
	}

	fmt.Println("\n--- Counting sales lines ---")
	product, err := backend.Product(ctx, salelink.KindVariant, productID)
	if err != nil {
		fmt.Printf(">> Could not load product %d: %v\n", productID, err)
		return
	}
	salesman := salelink.Principal{ID: 2, Login: odooUsername, Active: true,
		Capabilities: []salelink.Capability{salelink.CapViewAllSales}}
	counter := salelink.NewSalesCounter(backend, salelink.CapabilityAuthorizer{}, salelink.WithLogger(appLogger))
	if err := counter.Compute(ctx, product, salesman); err != nil {
		fmt.Printf(">> Count failed: %v\n", err)
		return
	}
	fmt.Printf("%s has %d confirmed sale line(s).\n", product.Name, product.SaleLinesCount)
}
