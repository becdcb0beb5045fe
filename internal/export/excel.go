// 包 export：将已提交的申请导出为 Excel 工作簿，供发放单位线下核对
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bansos-api/internal/store"
)

// SheetName 导出工作表名
const SheetName = "Pengajuan"

// Header 导出表头，与 row 的列顺序一致
var Header = []string{
	"ID", "Tanggal", "Nama", "NIK", "No KK", "Umur", "Jenis Kelamin",
	"Provinsi", "Kab/Kota", "Kecamatan", "Kelurahan", "Alamat", "RT", "RW",
	"Penghasilan Sebelum", "Penghasilan Setelah", "Alasan", "Pernyataan",
}

var colWidths = []float64{38, 18, 24, 20, 20, 8, 14, 20, 24, 20, 20, 36, 6, 6, 18, 18, 28, 10}

// WriteApplications 写出一个包含表头与全部申请的工作簿
// 约束：NIK 与 KK 以文本写入，避免 16 位数字被 Excel 转为科学计数法
func WriteApplications(w io.Writer, apps []store.Application) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for i, wd := range colWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, wd); err != nil {
			return fmt.Errorf("col width: %w", err)
		}
	}

	for i := range apps {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(&apps[i])
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func row(a *store.Application) []any {
	yes := "Tidak"
	if a.Pernyataan {
		yes = "Ya"
	}
	return []any{
		a.ID,
		a.CreatedAt.Format("2006-01-02 15:04"),
		a.Nama,
		a.NIK,
		a.NoKK,
		a.Umur,
		a.JenisKelamin,
		a.Provinsi,
		a.KabKota,
		a.Kecamatan,
		a.Kelurahan,
		a.Alamat,
		a.RT,
		a.RW,
		a.PenghasilanSebelum,
		a.PenghasilanSetelah,
		a.AlasanBantuan,
		yes,
	}
}
