package exchange

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeExchangeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFileReader_ReadProducts(t *testing.T) {
	dir := t.TempDir()
	writeExchangeFile(t, dir, "import0_1.xml", `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация>
  <Каталог>
    <Товары>
      <Товар>
        <Ид>bd72d910-55bc-11d9-848a-00112f43529a</Ид>
        <Артикул> А-100 </Артикул>
        <Наименование>Кабель силовой</Наименование>
        <Картинка>import_files/bd/cable.jpg</Картинка>
      </Товар>
      <Товар>
        <Ид>c1e2f930-55bc-11d9-848a-00112f43529a</Ид>
        <Артикул>Б-201</Артикул>
        <Наименование>Розетка накладная</Наименование>
      </Товар>
    </Товары>
  </Каталог>
</КоммерческаяИнформация>`)

	reader := NewFileReader(zap.NewNop())
	records, err := reader.ReadProducts(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "bd72d910-55bc-11d9-848a-00112f43529a", records[0].OnecID)
	assert.Equal(t, "bd72d910-55bc-11d9-848a-00112f43529a", records[0].OnecGUID)
	assert.Equal(t, "А-100", records[0].Article)
	assert.Equal(t, "Кабель силовой", records[0].Name)
	assert.Equal(t, "import_files/bd/cable.jpg", records[0].ImagePath)

	assert.Equal(t, "Б-201", records[1].Article)
	assert.Empty(t, records[1].ImagePath)
}

func TestFileReader_ReadProducts_NoFiles(t *testing.T) {
	reader := NewFileReader(zap.NewNop())

	_, err := reader.ReadProducts(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no import*.xml files found")

	_, err = reader.ReadProducts("")
	require.Error(t, err)
}

func TestFileReader_ReadOffers(t *testing.T) {
	dir := t.TempDir()
	writeExchangeFile(t, dir, "offers0_1.xml", `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация>
  <ПакетПредложений>
    <ТипыЦен>
      <ТипЦены>
        <Ид>retail-type</Ид>
        <Наименование>Розничная</Наименование>
      </ТипЦены>
      <ТипЦены>
        <Ид>wholesale-type</Ид>
        <Наименование>Оптовая цена</Наименование>
      </ТипЦены>
    </ТипыЦен>
    <Предложения>
      <Предложение>
        <Ид>bd72d910-55bc-11d9-848a-00112f43529a</Ид>
        <Количество>14</Количество>
        <Цены>
          <Цена>
            <ИдТипаЦены>retail-type</ИдТипаЦены>
            <ЦенаЗаЕдиницу>1250.50</ЦенаЗаЕдиницу>
          </Цена>
          <Цена>
            <ИдТипаЦены>wholesale-type</ИдТипаЦены>
            <ЦенаЗаЕдиницу>990</ЦенаЗаЕдиницу>
          </Цена>
        </Цены>
      </Предложение>
      <Предложение>
        <Ид>c1e2f930-55bc-11d9-848a-00112f43529a</Ид>
        <Количество>abc</Количество>
      </Предложение>
    </Предложения>
  </ПакетПредложений>
</КоммерческаяИнформация>`)

	reader := NewFileReader(zap.NewNop())
	records, err := reader.ReadOffers(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)

	offer := records[0]
	assert.Equal(t, "bd72d910-55bc-11d9-848a-00112f43529a", offer.OnecID)
	assert.True(t, offer.HasStock)
	assert.Equal(t, 14, offer.Quantity)
	assert.True(t, offer.HasPrices)
	assert.True(t, offer.RetailPrice.Equal(decimal.RequireFromString("1250.50")))
	assert.True(t, offer.WholesalePrice.Equal(decimal.RequireFromString("990")))

	// Unparseable quantity is logged and skipped, not fatal
	assert.False(t, records[1].HasStock)
	assert.False(t, records[1].HasPrices)
}

func TestFileReader_ReadCustomers(t *testing.T) {
	dir := t.TempDir()
	writeExchangeFile(t, dir, "contragents.xml", `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация>
  <Контрагенты>
    <Контрагент>
      <Ид>4f1b2c30-66cd-11d9-848a-00112f43529a</Ид>
      <Код>K-001</Код>
      <Наименование>ООО Ромашка</Наименование>
      <ПолноеНаименование>Петров Иван Сергеевич</ПолноеНаименование>
      <ИНН>7707083893</ИНН>
      <Контакты>
        <Контакт>
          <Тип>Почта</Тип>
          <Значение>ivan@romashka.ru</Значение>
        </Контакт>
        <Контакт>
          <Тип>Телефон</Тип>
          <Значение>+7 495 123-45-67</Значение>
        </Контакт>
      </Контакты>
    </Контрагент>
    <Контрагент>
      <Ид>5a2c3d40-66cd-11d9-848a-00112f43529a</Ид>
      <ПолноеНаименование>Сидорова</ПолноеНаименование>
    </Контрагент>
  </Контрагенты>
</КоммерческаяИнформация>`)

	reader := NewFileReader(zap.NewNop())
	payloads, err := reader.ReadCustomers(dir)
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	first := payloads[0]
	assert.Equal(t, "K-001", first.OnecID)
	assert.Equal(t, "4f1b2c30-66cd-11d9-848a-00112f43529a", first.OnecGUID)
	assert.Equal(t, "7707083893", first.TaxID)
	assert.Equal(t, "ООО Ромашка", first.Company)
	assert.Equal(t, "Иван", first.FirstName)
	assert.Equal(t, "Петров", first.LastName)
	assert.Equal(t, "ivan@romashka.ru", first.Email)
	assert.Equal(t, "+7 495 123-45-67", first.Phone)

	// Missing Код falls back to the GUID
	second := payloads[1]
	assert.Equal(t, "5a2c3d40-66cd-11d9-848a-00112f43529a", second.OnecID)
	assert.Equal(t, "", second.FirstName)
	assert.Equal(t, "Сидорова", second.LastName)
}

func TestSplitFullName(t *testing.T) {
	cases := []struct {
		fullName string
		first    string
		last     string
	}{
		{"Петров Иван Сергеевич", "Иван", "Петров"},
		{"Петров Иван", "Иван", "Петров"},
		{"Петров", "", "Петров"},
		{"", "", ""},
		{"  Петров   Иван  ", "Иван", "Петров"},
	}
	for _, tc := range cases {
		first, last := splitFullName(tc.fullName)
		assert.Equal(t, tc.first, first, tc.fullName)
		assert.Equal(t, tc.last, last, tc.fullName)
	}
}
