// Command bodyperf explores the body performance dataset, trains the
// performance classifier and serves predictions.
package main

func main() {
	Execute()
}
