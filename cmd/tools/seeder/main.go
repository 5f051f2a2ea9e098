package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"github.com/noah-isme/backend-pizza/internal/db"
)

type ingredient struct {
	ID       string
	Name     string
	Price    string
	Category string
}

type pizza struct {
	ID          string
	Name        string
	Description string
	BasePrice   string
	Category    string
	Ingredients []string
	Popular     bool
}

type drink struct {
	ID          string
	Name        string
	Description string
	Price       string
	Size        string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedIngredients(conn)
	seedPizzas(conn)
	seedDrinks(conn)
	seedAdmin(conn, os.Getenv("SEED_ADMIN_USER_ID"), os.Getenv("SEED_ADMIN_EMAIL"))

	log.Println("Seeding completed successfully!")
}

func seedIngredients(conn *sql.DB) {
	ingredients := []ingredient{
		{"traditional-dough", "Traditional Dough", "3.00", "base"},
		{"thin-dough", "Thin Dough", "3.00", "base"},
		{"wholewheat-dough", "Wholewheat Dough", "3.50", "base"},
		{"thick-dough", "Thick Dough", "3.50", "base"},
		{"mozzarella", "Mozzarella", "2.00", "cheese"},
		{"parmesan", "Parmesan", "2.50", "cheese"},
		{"blue-cheese", "Blue Cheese", "3.00", "cheese"},
		{"cheddar", "Cheddar", "2.50", "cheese"},
		{"tomato-sauce", "Tomato Sauce", "1.00", "sauce"},
		{"bbq-sauce", "BBQ Sauce", "1.50", "sauce"},
		{"white-sauce", "White Sauce", "1.50", "sauce"},
		{"pesto", "Pesto", "2.00", "sauce"},
		{"pepperoni", "Pepperoni", "2.00", "meat"},
		{"ham", "Ham", "1.80", "meat"},
		{"italian-sausage", "Italian Sausage", "2.20", "meat"},
		{"ground-beef", "Ground Beef", "2.00", "meat"},
		{"chicken", "Chicken", "2.00", "meat"},
		{"bacon", "Bacon", "2.20", "meat"},
		{"mushrooms", "Mushrooms", "1.20", "vegetable"},
		{"peppers", "Peppers", "1.00", "vegetable"},
		{"onion", "Onion", "0.80", "vegetable"},
		{"tomato", "Tomato", "1.00", "vegetable"},
		{"black-olives", "Black Olives", "1.50", "vegetable"},
		{"jalapenos", "Jalapenos", "1.20", "vegetable"},
		{"pineapple", "Pineapple", "1.50", "vegetable"},
		{"spinach", "Spinach", "1.20", "vegetable"},
		{"oregano", "Oregano", "0.50", "extra"},
		{"garlic", "Garlic", "0.80", "extra"},
		{"fresh-basil", "Fresh Basil", "1.00", "extra"},
	}

	fmt.Println("Seeding Ingredients...")
	for _, in := range ingredients {
		_, err := conn.Exec(`
			INSERT INTO ingredients (id, name, price, category, image_url, available)
			VALUES ($1, $2, $3::numeric, $4, $5, TRUE)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category;
		`, in.ID, in.Name, in.Price, in.Category, "assets/ingredients/"+in.ID+".jpg")
		if err != nil {
			log.Printf("Failed to upsert ingredient %s: %v", in.ID, err)
		}
	}
}

func seedPizzas(conn *sql.DB) {
	pizzas := []pizza{
		{"margherita", "Margherita", "Classic Italian pizza with mozzarella, tomato and basil", "12.99", "Classics",
			[]string{"mozzarella", "tomato-sauce", "fresh-basil"}, true},
		{"pepperoni", "Pepperoni", "Everyone's favourite, with generous pepperoni slices", "14.99", "Classics",
			[]string{"mozzarella", "tomato-sauce", "pepperoni"}, true},
		{"hawaiian", "Hawaiian", "Ham and pineapple for the brave", "13.99", "Specials",
			[]string{"mozzarella", "tomato-sauce", "ham", "pineapple"}, false},
		{"four-cheese", "Four Cheese", "Mozzarella, parmesan, cheddar and blue cheese", "15.99", "Gourmet",
			[]string{"mozzarella", "parmesan", "cheddar", "blue-cheese", "white-sauce"}, true},
		{"meat-lovers", "Meat Lovers", "Pepperoni, sausage, bacon and ground beef", "17.99", "Specials",
			[]string{"mozzarella", "tomato-sauce", "pepperoni", "italian-sausage", "bacon", "ground-beef"}, true},
		{"veggie", "Veggie", "Mushrooms, peppers, onion and olives", "13.99", "Vegetarian",
			[]string{"mozzarella", "tomato-sauce", "mushrooms", "peppers", "onion", "black-olives", "tomato"}, false},
		{"bbq-chicken", "BBQ Chicken", "Chicken with BBQ sauce, onion and bacon", "16.99", "Specials",
			[]string{"mozzarella", "bbq-sauce", "chicken", "onion", "bacon"}, true},
		{"mexican", "Mexican", "Spicy with jalapenos, ground beef and peppers", "15.99", "Specials",
			[]string{"mozzarella", "tomato-sauce", "ground-beef", "jalapenos", "peppers", "onion"}, false},
	}

	fmt.Println("Seeding Pizzas...")
	for _, p := range pizzas {
		_, err := conn.Exec(`
			INSERT INTO pizzas (id, name, description, base_price, image_url, category, ingredients, popular, available)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, TRUE)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				base_price = EXCLUDED.base_price,
				category = EXCLUDED.category,
				ingredients = EXCLUDED.ingredients,
				popular = EXCLUDED.popular;
		`, p.ID, p.Name, p.Description, p.BasePrice, "assets/pizzas/"+p.ID+".jpg", p.Category, pq.Array(p.Ingredients), p.Popular)
		if err != nil {
			log.Printf("Failed to upsert pizza %s: %v", p.ID, err)
		}
	}
}

func seedDrinks(conn *sql.DB) {
	drinks := []drink{
		{"cola-500", "Coca-Cola", "Classic soft drink", "2.50", "500ml"},
		{"cola-1l", "Coca-Cola", "Classic soft drink", "3.50", "1L"},
		{"sprite-500", "Sprite", "Lemon soft drink", "2.50", "500ml"},
		{"fanta-500", "Fanta Orange", "Orange soft drink", "2.50", "500ml"},
		{"water-500", "Mineral Water", "Still water", "1.50", "500ml"},
		{"orange-juice-350", "Orange Juice", "Fresh orange juice", "3.00", "350ml"},
		{"iced-tea-500", "Iced Tea", "Lemon iced tea", "2.80", "500ml"},
		{"beer-355", "Beer", "Craft beer", "4.50", "355ml"},
	}

	fmt.Println("Seeding Drinks...")
	for _, d := range drinks {
		_, err := conn.Exec(`
			INSERT INTO drinks (id, name, description, price, image_url, size, available)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, TRUE)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, size = EXCLUDED.size;
		`, d.ID, d.Name, d.Description, d.Price, "assets/drinks/"+d.ID+".jpg", d.Size)
		if err != nil {
			log.Printf("Failed to upsert drink %s: %v", d.ID, err)
		}
	}
}

// seedAdmin gives an identity-provider user the admin role in its profile.
func seedAdmin(conn *sql.DB, userID, email string) {
	if userID == "" {
		return
	}
	fmt.Println("Seeding Admin Profile...")
	_, err := conn.Exec(`
		INSERT INTO profiles (user_id, email, display_name, role)
		VALUES ($1, $2, 'Admin', 'admin')
		ON CONFLICT (user_id) DO UPDATE SET role = 'admin';
	`, userID, email)
	if err != nil {
		log.Printf("Failed to seed admin profile %s: %v", userID, err)
	}
}
