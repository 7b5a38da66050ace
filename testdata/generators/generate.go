// Command generate writes a consistent set of sample exports for manual runs:
//
//	go run ./testdata/generators -output-dir ./sample -materials 200
//	checksync reconcile --wms-file sample/WMS.xlsx --sap-file sample/SAP.xlsx --po-file sample/036.xlsx
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Generator builds WMS, SAP and PO-detail sheets from one random stock picture
type Generator struct {
	Seed      int64
	Materials int
	OutputDir string

	rng *rand.Rand
}

type material struct {
	code    string
	name    string
	uu      [3]int
	blocked []poLine
	// drift is added to the SAP unrestricted quantity
	drift int
	// inSAP is false for materials SAP does not know about
	inSAP bool
}

type poLine struct {
	po  string
	qty int
	// sapQty differs from qty when the block is out of sync
	sapQty int
	// wmsOnly lines never reach SAP; sapOnly lines are missing from the WMS report
	wmsOnly bool
	sapOnly bool
}

func main() {
	var (
		outputDir = flag.String("output-dir", "generated", "Output directory for generated files")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
		materials = flag.Int("materials", 50, "Number of materials to generate")
	)
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	g := &Generator{Seed: *seed, Materials: *materials, OutputDir: *outputDir}
	if err := g.Generate(); err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	fmt.Printf("Generated WMS.xlsx, SAP.xlsx and 036.xlsx in %s\n", *outputDir)
	fmt.Printf("Seed used: %d\n", *seed)
}

// Generate writes all three workbooks
func (g *Generator) Generate() error {
	g.rng = rand.New(rand.NewSource(g.Seed))
	stock := g.stock()

	if err := g.writeWorkbook("WMS.xlsx", g.wmsRows(stock)); err != nil {
		return err
	}
	if err := g.writeWorkbook("SAP.xlsx", g.sapRows(stock)); err != nil {
		return err
	}
	return g.writeWorkbook("036.xlsx", g.poRows(stock))
}

func (g *Generator) stock() []*material {
	stock := make([]*material, g.Materials)
	for i := range stock {
		m := &material{
			code:  fmt.Sprintf("%07d", 1000000+i*7),
			name:  fmt.Sprintf("Material %d", i+1),
			inSAP: g.rng.Intn(20) != 0,
		}
		for j := range m.uu {
			m.uu[j] = g.rng.Intn(200)
		}
		if g.rng.Intn(5) == 0 {
			m.drift = g.rng.Intn(21) - 10
		}

		for p := g.rng.Intn(4); p > 0; p-- {
			qty := 1 + g.rng.Intn(50)
			line := poLine{po: fmt.Sprintf("45%08d", g.rng.Intn(100000000)), qty: qty, sapQty: qty}
			switch g.rng.Intn(10) {
			case 0:
				line.sapQty = qty + g.rng.Intn(5) + 1
			case 1:
				line.wmsOnly = true
			case 2:
				line.sapOnly = true
			}
			m.blocked = append(m.blocked, line)
		}
		stock[i] = m
	}
	return stock
}

func (m *material) blockedWMS() int {
	total := 0
	for _, line := range m.blocked {
		if !line.sapOnly {
			total += line.qty
		}
	}
	return total
}

// wmsRows lays out the WMS snapshot: header on row 1, quantities in columns 3-7.
// A few cells carry units or text so the cleaner has work to do.
func (g *Generator) wmsRows(stock []*material) [][]interface{} {
	rows := [][]interface{}{{"Mã hàng", "Tên hàng", "Tổng tồn", "UU_1", "UU_2", "UU_3", "BLOCK"}}
	for _, m := range stock {
		block := m.blockedWMS()
		total := m.uu[0] + m.uu[1] + m.uu[2] + block

		var uu2 interface{} = m.uu[1]
		switch g.rng.Intn(25) {
		case 0:
			uu2 = fmt.Sprintf("%d pcs", m.uu[1])
		case 1:
			uu2 = decimal.NewFromInt(int64(m.uu[1])).Add(decimal.NewFromFloat(0.4)).String()
		}
		rows = append(rows, []interface{}{m.code, m.name, total, m.uu[0], uu2, m.uu[2], block})
	}
	return rows
}

// sapRows lays out the SAP export: two title rows, header on row 3, and one
// row per material and PO so the reconciliation has to group them.
func (g *Generator) sapRows(stock []*material) [][]interface{} {
	rows := [][]interface{}{
		{"Stock overview"},
		{"Plant 1000", time.Unix(g.Seed%1e9, 0).UTC().Format("2006-01-02")},
		{"Plant", "Material", "Material Description", "Unrestricted Use Qty", "Block Stock", "Total(UU+QI+Blocked)", "PO MPE"},
	}
	for _, m := range stock {
		if !m.inSAP {
			continue
		}
		uu := m.uu[0] + m.uu[1] + m.uu[2] + m.drift
		rows = append(rows, []interface{}{"1000", m.code, m.name, uu, 0, uu, ""})
		for _, line := range m.blocked {
			if line.wmsOnly {
				continue
			}
			rows = append(rows, []interface{}{"1000", m.code, m.name, 0, line.sapQty, line.sapQty, line.po})
		}
	}
	return rows
}

// poRows lays out the PO detail report: three title rows, header on row 4,
// and occasional lines without an item code.
func (g *Generator) poRows(stock []*material) [][]interface{} {
	rows := [][]interface{}{
		{"BÁO CÁO CHI TIẾT HÀNG BLOCK THEO PO"},
		{"Kho 036"},
		{"Ngày in", time.Unix(g.Seed%1e9, 0).UTC().Format("02/01/2006")},
		{"NO", "LOC", "ITEM", "NAMEITEM", "QTY", "QTYS", "LPN", "PO", "NCC", "ReceiptDate", "OrderDate"},
	}
	n := 0
	for _, m := range stock {
		for _, line := range m.blocked {
			if line.sapOnly {
				continue
			}
			// Split some lines over two LPNs so the report has to be summed.
			parts := []int{line.qty}
			if line.qty > 1 && g.rng.Intn(3) == 0 {
				first := 1 + g.rng.Intn(line.qty-1)
				parts = []int{first, line.qty - first}
			}
			for _, qty := range parts {
				n++
				rows = append(rows, []interface{}{
					n, "BLK-01", m.code, m.name, qty, 0,
					fmt.Sprintf("LPN%06d", n), line.po, "NCC01", "2024-01-05", "2023-12-20",
				})
			}
		}
		if g.rng.Intn(30) == 0 {
			n++
			rows = append(rows, []interface{}{n, "BLK-01", "", "", 1, 0, "", "", "", "", ""})
		}
	}
	return rows
}

func (g *Generator) writeWorkbook(name string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", name, i+1, err)
		}
	}
	return f.SaveAs(filepath.Join(g.OutputDir, name))
}
