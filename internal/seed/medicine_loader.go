package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LoadMedicines ingests a CSV catalogue into the medicines table, skipping
// rows whose barcode already exists. Expected columns:
// name,category,batch_no,expiry_date,quantity,purchase_price,selling_price,barcode
func LoadMedicines(db *sqlx.DB, csvPath string, log *zap.Logger) {
	log = log.Named("seed")

	file, err := os.Open(csvPath)
	if err != nil {
		log.Warn("unable to load medicine catalogue", zap.String("path", csvPath), zap.Error(err))
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Warn("unable to read catalogue header", zap.Error(err))
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Warn("unable to start catalogue transaction", zap.Error(err))
		return
	}
	stmt, err := tx.Preparex(`
        INSERT OR IGNORE INTO medicines (name, category, batch_no, expiry_date, quantity, purchase_price, selling_price, barcode)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Warn("unable to prepare catalogue insert", zap.Error(err))
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("unable to read catalogue row", zap.Error(err))
			continue
		}
		if len(record) < 7 {
			continue
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		category := strings.TrimSpace(record[1])
		batchNo := strings.TrimSpace(record[2])
		expiry := strings.TrimSpace(record[3])
		quantity, _ := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)
		purchase, _ := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
		selling, _ := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)

		var barcode *string
		if len(record) > 7 {
			if b := strings.TrimSpace(record[7]); b != "" {
				barcode = &b
			}
		}

		if _, err := stmt.Exec(name, category, batchNo, expiry, quantity, purchase, selling, barcode); err != nil {
			log.Warn("unable to insert medicine", zap.String("name", name), zap.Error(err))
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Warn("unable to commit catalogue seed", zap.Error(err))
		return
	}
	log.Info("seeded medicine catalogue", zap.Int("rows", rows))
}
