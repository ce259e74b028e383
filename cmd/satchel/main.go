// Command satchel is a personal data keeper: tasks, notes, and a small
// ledger in one local-first record, optionally mirrored to cloud storage.
package main

func main() {
	Execute()
}
