package exports

import (
	"fmt"
	"io"
	"os"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"sellerchain/indexer"
)

type purchaseRow struct {
	Height      int64  `parquet:"name=height, type=INT64"`
	TxHash      string `parquet:"name=tx_hash, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Seller      string `parquet:"name=seller, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Buyer       string `parquet:"name=buyer, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Referrer    string `parquet:"name=referrer, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Payment     string `parquet:"name=payment, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Tokens      string `parquet:"name=tokens, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Bonus       string `parquet:"name=bonus, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Remainder   string `parquet:"name=remainder, type=UTF8, encoding=PLAIN_DICTIONARY"`
	ReferralHit bool   `parquet:"name=referral_hit, type=BOOLEAN"`
	IndexedAt   string `parquet:"name=indexed_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// WritePurchasesParquet streams purchases to w as a snappy-compressed
// Parquet file.
func WritePurchasesParquet(w io.Writer, purchases []indexer.Purchase) error {
	fw := writerfile.NewWriterFile(w)
	pw, err := writer.NewParquetWriter(fw, new(purchaseRow), 1)
	if err != nil {
		return fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, p := range purchases {
		row := &purchaseRow{
			Height:      int64(p.Height),
			TxHash:      p.TxHash,
			Seller:      p.Seller,
			Buyer:       p.Buyer,
			Referrer:    p.Referrer,
			Payment:     orZero(p.Payment),
			Tokens:      orZero(p.Tokens),
			Bonus:       orZero(p.Bonus),
			Remainder:   orZero(p.Remainder),
			ReferralHit: p.ReferralHit,
			IndexedAt:   indexedAt(p.CreatedAt),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("exports: parquet flush: %w", err)
	}
	return nil
}

// PurchasesParquetFile writes the Parquet export to path.
func PurchasesParquetFile(path string, purchases []indexer.Purchase) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("exports: create parquet: %w", err)
	}
	if err := WritePurchasesParquet(file, purchases); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("exports: close parquet file: %w", err)
	}
	return nil
}
