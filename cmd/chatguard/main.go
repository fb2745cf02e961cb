// Command chatguard runs the resilience layer of the chat client against a
// backend: the health monitor, the social feature bootstrap and a status
// server. The probe and upload subcommands exercise single operations.
package main

func main() {
	Execute()
}
