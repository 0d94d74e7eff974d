package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/t7a/pitledger/ledger"
	"github.com/t7a/pitledger/wallet"
)

// nameMap maps key ids to wallet names, for display.
func nameMap(ks wallet.Keystore) map[string]string {
	names := make(map[string]string)
	list, _ := ks.List()
	for _, name := range list {
		w, err := ks.Load(name)
		if err != nil {
			continue
		}
		names[w.KeyID()] = name
	}
	return names
}

func display(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	if len(id) > 16 {
		return id[:16] + "..."
	}
	return id
}

func row(names map[string]string, height int, b ledger.Block) string {
	tx := b.Transaction()
	return fmt.Sprintf("%d %.12s %s %s -> %s %s", height, b.Hash(),
		b.Time().UTC().Format(time.RFC3339), display(names, tx.Payer),
		display(names, tx.Payee), formatAmount(tx.Amount))
}

func blockRows(names map[string]string, blocks []ledger.Block) [][]string {
	data := [][]string{{"Height", "Hash", "Time", "Payer", "Payee", "Amount"}}
	for i, b := range blocks {
		tx := b.Transaction()
		data = append(data, []string{
			strconv.Itoa(i),
			b.Hash()[:12],
			b.Time().UTC().Format(time.RFC3339),
			display(names, tx.Payer),
			display(names, tx.Payee),
			formatAmount(tx.Amount),
		})
	}
	return data
}

func balanceRows(names map[string]string, blocks []ledger.Block) [][]string {
	bal := ledger.Balances(blocks)
	var ids []string
	for id := range bal {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return display(names, ids[i]) < display(names, ids[j])
	})
	data := [][]string{{"Holder", "Balance"}}
	for _, id := range ids {
		data = append(data, []string{display(names, id), formatAmount(bal[id])})
	}
	return data
}

func table(data [][]string) (err error) {
	if os.Getenv("NO_COLOR") != "" {
		pterm.DisableStyling()
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return
	}
	fmt.Println(out)
	return
}

func show(rd reader) (err error) {
	blocks, err := rd.All()
	if err != nil {
		return
	}
	return table(blockRows(nameMap(keystore()), blocks))
}

func balance(rd reader) (err error) {
	blocks, err := rd.All()
	if err != nil {
		return
	}
	return table(balanceRows(nameMap(keystore()), blocks))
}
