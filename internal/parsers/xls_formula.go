package parsers

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/extrame/ole2"
)

// BIFF record identifiers read by formulaValues
const (
	biffFormula    = 0x0006
	biffEOF        = 0x000A
	biffBoundSheet = 0x0085
	biffString     = 0x0207
)

// xlsCell addresses a cell by zero-based row and column
type xlsCell struct {
	row, col int
}

// xlsFormulaValues returns the cached results of the formula cells on the
// given sheet. extrame/xls drops FORMULA records, so a computed quantity
// would otherwise read as an empty cell.
func xlsFormulaValues(file io.ReadSeeker, sheet int, biff5 bool) (map[xlsCell]string, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	ole, err := ole2.Open(file, "utf-8")
	if err != nil {
		return nil, err
	}
	dir, err := ole.ListDir()
	if err != nil {
		return nil, err
	}

	var book, root *ole2.File
	for _, f := range dir {
		switch f.Name() {
		case "Workbook", "Book":
			book = f
		case "Root Entry":
			root = f
		}
	}
	if book == nil || root == nil {
		return nil, fmt.Errorf("no Workbook stream")
	}

	data, err := io.ReadAll(ole.OpenFile(book, root))
	if err != nil {
		return nil, err
	}
	if int(book.Size) < len(data) {
		data = data[:book.Size]
	}
	return formulaValues(data, sheet, biff5), nil
}

// formulaValues walks a BIFF Workbook stream. The globals substream gives
// the offset of each sheet; the sheet's substream is then scanned up to its
// EOF record.
func formulaValues(data []byte, sheet int, biff5 bool) map[xlsCell]string {
	var offsets []int
	for pos := 0; pos+4 <= len(data); {
		id, body, next := biffRecord(data, pos)
		pos = next
		if id == biffBoundSheet && len(body) >= 4 {
			offsets = append(offsets, int(binary.LittleEndian.Uint32(body)))
		}
		if id == biffEOF {
			break
		}
	}
	if sheet < 0 || sheet >= len(offsets) {
		return nil
	}

	values := make(map[xlsCell]string)
	var pending *xlsCell
	for pos := offsets[sheet]; pos+4 <= len(data); {
		id, body, next := biffRecord(data, pos)
		pos = next
		switch id {
		case biffFormula:
			if len(body) < 14 {
				continue
			}
			cell := xlsCell{
				row: int(binary.LittleEndian.Uint16(body[0:])),
				col: int(binary.LittleEndian.Uint16(body[2:])),
			}
			result := body[6:14]
			if binary.LittleEndian.Uint16(result[6:]) != 0xFFFF {
				number := math.Float64frombits(binary.LittleEndian.Uint64(result))
				values[cell] = strconv.FormatFloat(number, 'f', -1, 64)
				continue
			}
			switch result[0] {
			case 0:
				// the text follows in a STRING record
				pending = &cell
			case 1:
				values[cell] = "0"
				if result[2] != 0 {
					values[cell] = "1"
				}
			default:
				values[cell] = ""
			}
		case biffString:
			if pending != nil {
				values[*pending] = biffText(body, biff5)
				pending = nil
			}
		case biffEOF:
			return values
		}
	}
	return values
}

func biffRecord(data []byte, pos int) (id uint16, body []byte, next int) {
	id = binary.LittleEndian.Uint16(data[pos:])
	size := int(binary.LittleEndian.Uint16(data[pos+2:]))
	start := pos + 4
	end := start + size
	if end > len(data) {
		end = len(data)
	}
	return id, data[start:end], start + size
}

// biffText decodes the body of a STRING record. BIFF8 stores a flags byte
// selecting compressed or UTF-16 characters; BIFF5 stores single bytes.
func biffText(body []byte, biff5 bool) string {
	if len(body) < 2 {
		return ""
	}
	count := int(binary.LittleEndian.Uint16(body))
	chars := body[2:]
	wide := false
	if !biff5 {
		if len(chars) == 0 {
			return ""
		}
		wide = chars[0]&0x01 != 0
		chars = chars[1:]
	}

	if wide {
		if count*2 > len(chars) {
			count = len(chars) / 2
		}
		units := make([]uint16, count)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(chars[i*2:])
		}
		return string(utf16.Decode(units))
	}

	if count > len(chars) {
		count = len(chars)
	}
	runes := make([]rune, count)
	for i, b := range chars[:count] {
		runes[i] = rune(b)
	}
	return string(runes)
}
